// Package loyalty redeems a user's loyalty points in fixed blocks.
package loyalty

import (
	"context"
	"errors"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
	"github.com/example/transfer-booking/internal/observability"
	"github.com/example/transfer-booking/internal/storage"
)

type Redeemer interface {
	RedeemPoints(ctx context.Context, userID string, n int) (models.User, error)
}

type Service struct {
	Users Redeemer
}

// Redeem spends exactly models.LoyaltyRedemption points. A short balance is
// a validation error and leaves the balance unchanged.
func (s *Service) Redeem(ctx context.Context, userID string) (models.User, error) {
	u, err := s.Users.RedeemPoints(ctx, userID, models.LoyaltyRedemption)
	switch {
	case err == nil:
		observability.LoyaltyRedemptions.Inc()
		return u, nil
	case errors.Is(err, storage.ErrInsufficientPoints):
		return models.User{}, apperr.Invalid("loyaltyPoints", "Not enough points")
	case apperr.IsNotFound(err):
		return models.User{}, err
	default:
		return models.User{}, apperr.Collaborator("redeem points", err)
	}
}
