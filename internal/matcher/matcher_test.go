package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
)

type fakeCatalog struct {
	routes   []models.Route
	vehicles map[string]models.Vehicle
	err      error
}

func (f *fakeCatalog) FindRoute(ctx context.Context, o, d string) (models.Route, error) {
	if f.err != nil {
		return models.Route{}, f.err
	}
	for _, r := range f.routes {
		if r.OriginID == o && r.DestinationID == d {
			return r, nil
		}
	}
	return models.Route{}, apperr.NotFound("route")
}

func (f *fakeCatalog) GetVehicles(ctx context.Context, ids []string) ([]models.Vehicle, error) {
	out := make([]models.Vehicle, 0, len(ids))
	for _, id := range ids {
		if v, ok := f.vehicles[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	rooms, messages []string
}

func (n *recordingNotifier) Publish(ctx context.Context, room, msg string) error {
	n.rooms = append(n.rooms, room)
	n.messages = append(n.messages, msg)
	return nil
}

func TestMatchVehiclesFiltersAndSorts(t *testing.T) {
	in := []models.Vehicle{
		{ID: "a", Capacity: 4, BasePrice: 100},
		{ID: "b", Capacity: 6, BasePrice: 80},
		{ID: "c", Capacity: 6, BasePrice: 90},
	}
	got := MatchVehicles(in, 5)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("expected [b c], got %+v", got)
	}
}

func TestMatchVehiclesStableOnTies(t *testing.T) {
	in := []models.Vehicle{
		{ID: "x", Capacity: 8, BasePrice: 50},
		{ID: "y", Capacity: 8, BasePrice: 40},
		{ID: "z", Capacity: 8, BasePrice: 50},
		{ID: "w", Capacity: 8, BasePrice: 50},
	}
	got := MatchVehicles(in, 1)
	want := []string{"y", "x", "z", "w"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].BasePrice < got[i-1].BasePrice {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestMatchVehiclesEmpty(t *testing.T) {
	got := MatchVehicles([]models.Vehicle{{ID: "a", Capacity: 2, BasePrice: 10}}, 3)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestResolveRouteIsDirectional(t *testing.T) {
	cat := &fakeCatalog{routes: []models.Route{{ID: "r1", OriginID: "A", DestinationID: "B"}}}
	r, err := ResolveRoute(context.Background(), cat, "A", "B")
	if err != nil || r.ID != "r1" {
		t.Fatalf("expected r1, got %+v (%v)", r, err)
	}
	if _, err := ResolveRoute(context.Background(), cat, "B", "A"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found for reverse, got %v", err)
	}

	cat.routes = append(cat.routes, models.Route{ID: "r2", OriginID: "B", DestinationID: "A"})
	if r, _ := ResolveRoute(context.Background(), cat, "B", "A"); r.ID != "r2" {
		t.Fatalf("expected distinct reverse route, got %+v", r)
	}
}

func TestResolveRouteStoreFailure(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("connection refused")}
	_, err := ResolveRoute(context.Background(), cat, "A", "B")
	var cerr *apperr.CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}

func TestSearchUsesRouteVehiclesAndNotifies(t *testing.T) {
	cat := &fakeCatalog{
		routes: []models.Route{{ID: "r1", OriginID: "lim", DestinationID: "mfl", VehicleIDs: []string{"v1", "v2", "v3"}}},
		vehicles: map[string]models.Vehicle{
			"v1": {ID: "v1", Capacity: 4, BasePrice: 100},
			"v2": {ID: "v2", Capacity: 6, BasePrice: 80},
			"v3": {ID: "v3", Capacity: 6, BasePrice: 90},
			"v4": {ID: "v4", Capacity: 12, BasePrice: 10},
		},
	}
	n := &recordingNotifier{}
	s := &Service{Catalog: cat, Notifier: n}
	res, err := s.Search(context.Background(), models.SearchRequest{Pickup: "lim", Dropoff: "mfl", Passengers: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Route.ID != "r1" || len(res.Vehicles) != 2 || res.Vehicles[0].ID != "v2" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(n.rooms) != 1 || n.rooms[0] != SearchRoom || n.messages[0] != "New search for vehicles from lim to mfl" {
		t.Fatalf("unexpected notifications %v %v", n.rooms, n.messages)
	}
}

func TestSearchNoRouteDiffersFromNoVehicle(t *testing.T) {
	cat := &fakeCatalog{
		routes:   []models.Route{{ID: "r1", OriginID: "lim", DestinationID: "mfl", VehicleIDs: []string{"v1"}}},
		vehicles: map[string]models.Vehicle{"v1": {ID: "v1", Capacity: 2, BasePrice: 100}},
	}
	s := &Service{Catalog: cat}

	res, err := s.Search(context.Background(), models.SearchRequest{Pickup: "lim", Dropoff: "mfl", Passengers: 3})
	if err != nil || len(res.Vehicles) != 0 {
		t.Fatalf("expected empty match, got %+v (%v)", res, err)
	}
	if _, err := s.Search(context.Background(), models.SearchRequest{Pickup: "mfl", Dropoff: "lim", Passengers: 1}); !apperr.IsNotFound(err) {
		t.Fatalf("expected no route, got %v", err)
	}
}
