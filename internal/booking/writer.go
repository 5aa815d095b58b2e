// Package booking turns a cart into a persisted reservation and manages the
// reservation afterwards.
package booking

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/auth"
	"github.com/example/transfer-booking/internal/cart"
	"github.com/example/transfer-booking/internal/matcher"
	"github.com/example/transfer-booking/internal/models"
)

const (
	codePrefix     = "TR-"
	passwordLength = 10
	codeAttempts   = 5
	passwordChars  = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

	// priceTolerance absorbs float noise in a client's fare snapshot.
	priceTolerance = 0.005
)

type Store interface {
	matcher.Catalog
	CreateReservation(ctx context.Context, r models.Reservation) (models.Reservation, error)
	GetReservationByCode(ctx context.Context, code string) (models.Reservation, error)
	ListReservations(ctx context.Context, clientID string) ([]models.Reservation, error)
	UpdateReservation(ctx context.Context, r models.Reservation) error
}

// Options carry what is already known about payment when the reservation is
// written.
type Options struct {
	PaymentStatus    models.PaymentStatus
	PaymentReference string
}

// Created is a new reservation plus its access password in plain text. The
// password is never available again.
type Created struct {
	Reservation models.Reservation `json:"reservation"`
	Password    string             `json:"reservationPassword"`
}

type Writer struct {
	Store Store

	newCode     func() (string, error)
	newPassword func() (string, error)
}

func NewWriter(store Store) *Writer {
	return &Writer{Store: store, newCode: randomCode, newPassword: randomPassword}
}

// Create writes a reservation for services on behalf of id.
func (w *Writer) Create(ctx context.Context, id auth.Identity, services []cart.Service, opts Options) (Created, error) {
	r, err := w.prepare(ctx, id, services)
	if err != nil {
		return Created{}, err
	}
	if opts.PaymentStatus != "" {
		r.PaymentStatus = opts.PaymentStatus
	}
	r.PaymentReference = opts.PaymentReference
	return w.insert(ctx, r)
}

// prepare resolves every route and materializes one reservation service per
// (cart service x vehicle line). Every line must be a vehicle the route offers
// at its current fare. Nothing is written.
func (w *Writer) prepare(ctx context.Context, id auth.Identity, services []cart.Service) (models.Reservation, error) {
	if len(services) == 0 {
		return models.Reservation{}, apperr.Invalid("services", "cart is empty")
	}
	var (
		lines []models.ReservationService
		total float64
	)
	for i, s := range services {
		if len(s.Vehicles) == 0 {
			return models.Reservation{}, apperr.Invalid(fmt.Sprintf("services[%d].vehicles", i), "must not be empty")
		}
		route, err := matcher.ResolveRoute(ctx, w.Store, s.Pickup, s.Dropoff)
		if err != nil {
			return models.Reservation{}, err
		}
		offered, err := w.Store.GetVehicles(ctx, route.VehicleIDs)
		if err != nil {
			return models.Reservation{}, apperr.Collaborator("get vehicles", err)
		}
		byID := make(map[string]models.Vehicle, len(offered))
		for _, v := range offered {
			byID[v.ID] = v
		}
		passengers := s.Passengers
		if passengers < 1 {
			passengers = 1
		}
		for j, line := range s.Vehicles {
			v, ok := byID[line.ID]
			if !ok {
				return models.Reservation{}, apperr.NotFound("vehicle")
			}
			if math.Abs(line.Price-v.BasePrice) > priceTolerance {
				return models.Reservation{}, apperr.Invalid(fmt.Sprintf("services[%d].vehicles[%d].price", i, j), "does not match the current fare")
			}
			price := v.BasePrice * float64(line.Quantity)
			if s.IsRoundTrip {
				price *= 2
			}
			total += price
			lines = append(lines, models.ReservationService{
				RouteID:     route.ID,
				VehicleID:   v.ID,
				PickupDate:  s.DepartureDate,
				PickupTime:  s.DepartureTime,
				IsRoundTrip: s.IsRoundTrip,
				ReturnDate:  s.ReturnDate,
				ReturnTime:  s.ReturnTime,
				Passengers:  passengers,
				Quantity:    line.Quantity,
				Price:       price,
				Status:      models.ServicePending,
			})
		}
	}
	return models.Reservation{
		ClientID:      id.UserID,
		Services:      lines,
		TotalPrice:    total,
		PaymentStatus: models.PaymentPending,
	}, nil
}

// insert assigns a fresh code and password, retrying when the code is taken.
func (w *Writer) insert(ctx context.Context, r models.Reservation) (Created, error) {
	password, err := w.newPassword()
	if err != nil {
		return Created{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Created{}, err
	}
	r.PasswordHash = hash

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := w.newCode()
		if err != nil {
			return Created{}, err
		}
		r.ReservationCode = code
		saved, err := w.Store.CreateReservation(ctx, r)
		if err == nil {
			return Created{Reservation: saved, Password: password}, nil
		}
		if !apperr.IsConflict(err) {
			return Created{}, apperr.Collaborator("create reservation", err)
		}
	}
	return Created{}, apperr.Conflict("reservation", fmt.Sprintf("no free reservation code after %d attempts", codeAttempts))
}

func randomCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reservation code: %w", err)
	}
	return codePrefix + base32.StdEncoding.EncodeToString(b), nil
}

func randomPassword() (string, error) {
	out := make([]byte, passwordLength)
	n := big.NewInt(int64(len(passwordChars)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("reservation password: %w", err)
		}
		out[i] = passwordChars[idx.Int64()]
	}
	return string(out), nil
}

// Lookup is the guest path to a reservation. A wrong password looks exactly
// like an unknown code.
func (w *Writer) Lookup(ctx context.Context, code, password string) (models.Reservation, error) {
	r, err := w.get(ctx, code)
	if err != nil {
		return models.Reservation{}, err
	}
	if !auth.CheckPassword(r.PasswordHash, password) {
		return models.Reservation{}, apperr.NotFound("reservation")
	}
	return r, nil
}

func (w *Writer) List(ctx context.Context, clientID string) ([]models.Reservation, error) {
	rs, err := w.Store.ListReservations(ctx, clientID)
	if err != nil {
		return nil, apperr.Collaborator("list reservations", err)
	}
	return rs, nil
}

func (w *Writer) UpdateServiceStatus(ctx context.Context, code string, index int, status models.ServiceStatus) (models.Reservation, error) {
	if !status.Valid() {
		return models.Reservation{}, apperr.Invalid("status", "unknown service status")
	}
	return w.mutate(ctx, code, func(r *models.Reservation) error {
		if index < 0 || index >= len(r.Services) {
			return apperr.NotFound("service")
		}
		r.Services[index].Status = status
		return nil
	})
}

func (w *Writer) UpdatePaymentStatus(ctx context.Context, code string, status models.PaymentStatus) (models.Reservation, error) {
	if !status.Valid() {
		return models.Reservation{}, apperr.Invalid("paymentStatus", "unknown payment status")
	}
	return w.mutate(ctx, code, func(r *models.Reservation) error {
		r.PaymentStatus = status
		return nil
	})
}

// Cancel marks every service Cancelled. Payment status is left for staff.
func (w *Writer) Cancel(ctx context.Context, code string) (models.Reservation, error) {
	return w.mutate(ctx, code, func(r *models.Reservation) error {
		for i := range r.Services {
			r.Services[i].Status = models.ServiceCancelled
		}
		return nil
	})
}

func (w *Writer) mutate(ctx context.Context, code string, fn func(*models.Reservation) error) (models.Reservation, error) {
	r, err := w.get(ctx, code)
	if err != nil {
		return models.Reservation{}, err
	}
	if err := fn(&r); err != nil {
		return models.Reservation{}, err
	}
	if err := w.Store.UpdateReservation(ctx, r); err != nil {
		if apperr.IsNotFound(err) {
			return models.Reservation{}, err
		}
		return models.Reservation{}, apperr.Collaborator("update reservation", err)
	}
	r.UpdatedAt = time.Now().UTC()
	return r, nil
}

func (w *Writer) get(ctx context.Context, code string) (models.Reservation, error) {
	r, err := w.Store.GetReservationByCode(ctx, code)
	if err != nil {
		if apperr.IsNotFound(err) {
			return models.Reservation{}, err
		}
		return models.Reservation{}, apperr.Collaborator("get reservation", err)
	}
	return r, nil
}
