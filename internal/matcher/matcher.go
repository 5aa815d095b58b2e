package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
	"github.com/example/transfer-booking/internal/observability"
)

// SearchRoom receives a notice for every search.
const SearchRoom = "shoppingCart"

type RouteFinder interface {
	FindRoute(ctx context.Context, originID, destinationID string) (models.Route, error)
}

type Catalog interface {
	RouteFinder
	GetVehicles(ctx context.Context, ids []string) ([]models.Vehicle, error)
}

type Notifier interface {
	Publish(ctx context.Context, room, message string) error
}

// ResolveRoute returns the route from origin to destination. There is no
// reverse-direction fallback; a miss is an apperr.NotFoundError.
func ResolveRoute(ctx context.Context, f RouteFinder, originID, destinationID string) (models.Route, error) {
	r, err := f.FindRoute(ctx, originID, destinationID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return models.Route{}, apperr.NotFound("route")
		}
		return models.Route{}, apperr.Collaborator("find route", err)
	}
	return r, nil
}

// MatchVehicles keeps vehicles that seat at least passengers and orders them
// by ascending base price. Equal prices keep their input order. The result
// may be empty.
func MatchVehicles(vehicles []models.Vehicle, passengers int) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Capacity >= passengers {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BasePrice < out[j].BasePrice })
	return out
}

type SearchResult struct {
	Route    models.Route     `json:"route"`
	Vehicles []models.Vehicle `json:"vehicles"`
}

type Service struct {
	Catalog  Catalog
	Notifier Notifier // optional
	Logger   *slog.Logger
}

// Search resolves the route for req and returns its eligible vehicles.
// req must already be validated.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (SearchResult, error) {
	start := time.Now()
	defer func() { observability.SearchLatency.Observe(time.Since(start).Seconds()) }()

	s.notify(ctx, fmt.Sprintf("New search for vehicles from %s to %s", req.Pickup, req.Dropoff))

	route, err := ResolveRoute(ctx, s.Catalog, req.Pickup, req.Dropoff)
	if err != nil {
		if apperr.IsNotFound(err) {
			observability.SearchesTotal.WithLabelValues("no_route").Inc()
		} else {
			observability.SearchesTotal.WithLabelValues("error").Inc()
		}
		return SearchResult{}, err
	}
	vehicles, err := s.Catalog.GetVehicles(ctx, route.VehicleIDs)
	if err != nil {
		observability.SearchesTotal.WithLabelValues("error").Inc()
		return SearchResult{}, apperr.Collaborator("load route vehicles", err)
	}
	matched := MatchVehicles(vehicles, req.Passengers)
	if len(matched) == 0 {
		observability.SearchesTotal.WithLabelValues("empty").Inc()
	} else {
		observability.SearchesTotal.WithLabelValues("matched").Inc()
	}
	return SearchResult{Route: route, Vehicles: matched}, nil
}

// notify is best-effort; delivery is at-most-once.
func (s *Service) notify(ctx context.Context, msg string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, SearchRoom, msg); err != nil && s.Logger != nil {
		s.Logger.Warn("search notification failed", "err", err)
	}
}
