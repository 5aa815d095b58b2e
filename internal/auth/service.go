package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
)

// UserStore is the slice of storage the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	TouchLogin(ctx context.Context, userID string) error
}

type Service struct {
	Users  UserStore
	Tokens *Tokens
	Logger *slog.Logger
}

type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an active account with role user.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	return s.CreateUser(ctx, models.CreateUserRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Role:        models.RoleUser,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
}

// CreateUser creates an active account with the requested role.
func (s *Service) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	hash, err := HashPassword(req.Password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.Users.CreateUser(ctx, models.User{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		IsActive:     true,
	})
	if err != nil {
		if apperr.IsConflict(err) {
			return models.User{}, err
		}
		return models.User{}, apperr.Collaborator("create user", err)
	}
	return u, nil
}

// Login checks credentials and issues a token. Unknown email, wrong password
// and inactive accounts all fail with ErrUnauthorized.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (Session, error) {
	u, err := s.Users.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if apperr.IsNotFound(err) {
			return Session{}, apperr.ErrUnauthorized
		}
		return Session{}, apperr.Collaborator("get user", err)
	}
	if !u.IsActive || !CheckPassword(u.PasswordHash, req.Password) {
		return Session{}, apperr.ErrUnauthorized
	}
	tok, err := s.Tokens.Issue(Identity{UserID: u.ID, Role: u.Role})
	if err != nil {
		return Session{}, err
	}
	if err := s.Users.TouchLogin(ctx, u.ID); err != nil && s.Logger != nil {
		s.Logger.Warn("touch login failed", "user_id", u.ID, "err", err)
	}
	return Session{Token: tok, User: u}, nil
}

// Bootstrap ensures a superadmin with the given email exists. An existing
// account is left alone.
func (s *Service) Bootstrap(ctx context.Context, email, password string) (models.User, error) {
	email = strings.ToLower(email)
	if u, err := s.Users.GetUserByEmail(ctx, email); err == nil {
		return u, nil
	} else if !apperr.IsNotFound(err) {
		return models.User{}, apperr.Collaborator("get user", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	return s.Users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	})
}
