// Package storage holds the catalog, user and reservation records behind one
// Store interface. Implementations are constructed explicitly and closed by
// the owner; nothing here keeps a process-wide handle.
package storage

import (
	"context"
	"errors"

	"github.com/example/transfer-booking/internal/models"
)

// ErrInsufficientPoints is returned by RedeemPoints when the balance is below
// the requested amount. The balance is left unchanged.
var ErrInsufficientPoints = errors.New("not enough points")

type LocationFilter struct {
	CityID   string
	Type     models.LocationType
	Featured bool // only featured locations when true
	Limit    int  // 0 means no limit
}

// Catalog is the read/create surface for the travel catalog. Lists come back
// in insertion order, except testimonials which are newest first. Creating a
// record that references a missing city, location or provider is an
// apperr.NotFoundError on every backend.
type Catalog interface {
	ListCities(ctx context.Context) ([]models.City, error)
	CreateCity(ctx context.Context, c models.City) (models.City, error)

	ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error)
	GetLocation(ctx context.Context, id string) (models.Location, error)
	CreateLocation(ctx context.Context, l models.Location) (models.Location, error)

	ListProviders(ctx context.Context) ([]models.Provider, error)
	CreateProvider(ctx context.Context, p models.Provider) (models.Provider, error)

	ListRoutes(ctx context.Context) ([]models.Route, error)
	GetRoute(ctx context.Context, id string) (models.Route, error)
	// FindRoute matches origin and destination exactly; direction matters.
	FindRoute(ctx context.Context, originID, destinationID string) (models.Route, error)
	CreateRoute(ctx context.Context, r models.Route) (models.Route, error)

	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	// GetVehicles returns the vehicles in the order of ids, skipping unknown ids.
	GetVehicles(ctx context.Context, ids []string) ([]models.Vehicle, error)
	CreateVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error)

	ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error)
	CreateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error)
}

type Users interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	// ListUsers returns users in insertion order.
	ListUsers(ctx context.Context) ([]models.User, error)
	// RedeemPoints subtracts n points only when the balance covers it.
	RedeemPoints(ctx context.Context, userID string, n int) (models.User, error)
	TouchLogin(ctx context.Context, userID string) error
}

type Reservations interface {
	// CreateReservation fails with a conflict when the reservation code is taken.
	CreateReservation(ctx context.Context, r models.Reservation) (models.Reservation, error)
	GetReservationByCode(ctx context.Context, code string) (models.Reservation, error)
	// ListReservations returns every reservation when clientID is empty.
	ListReservations(ctx context.Context, clientID string) ([]models.Reservation, error)
	UpdateReservation(ctx context.Context, r models.Reservation) error
}

type Store interface {
	Catalog
	Users
	Reservations
	Close() error
}
