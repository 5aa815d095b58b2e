package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := NewPostgresStoreFromDB(db)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

var routeRowColumns = []string{"id", "origin_id", "destination_id", "distance", "estimated_time", "vehicle_ids"}

func TestPostgresFindRoute(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM routes WHERE origin_id = $1 AND destination_id = $2")).
		WithArgs("lim", "cuz").
		WillReturnRows(sqlmock.NewRows(routeRowColumns).AddRow("r1", "lim", "cuz", 1100.0, 1320.0, "{v1,v2}"))

	r, err := store.FindRoute(context.Background(), "lim", "cuz")
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if r.ID != "r1" || len(r.VehicleIDs) != 2 || r.VehicleIDs[1] != "v2" {
		t.Fatalf("unexpected route %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresFindRouteMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM routes WHERE origin_id = $1")).
		WithArgs("cuz", "lim").
		WillReturnRows(sqlmock.NewRows(routeRowColumns))

	_, err := store.FindRoute(context.Background(), "cuz", "lim")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresCreateRouteDuplicatePair(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO routes")).
		WithArgs(sqlmock.AnyArg(), "lim", "cuz", 0.0, 0.0, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateRoute(context.Background(), models.Route{OriginID: "lim", DestinationID: "cuz"})
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPostgresCreateRouteSameEndpoints(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.CreateRoute(context.Background(), models.Route{OriginID: "lim", DestinationID: "lim"})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPostgresGetVehiclesKeepsRequestedOrder(t *testing.T) {
	store, mock := newMockStore(t)
	cols := []string{"id", "name", "type", "capacity", "luggage", "category", "base_price", "image", "provider_id"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("v1", "Sedan", "Sedan", 4, 2, "Standard", 100.0, "", "p1").
			AddRow("v2", "Van", "Van", 10, 8, "Comfort", 180.0, "", "p1"))

	got, err := store.GetVehicles(context.Background(), []string{"v2", "missing", "v1"})
	if err != nil {
		t.Fatalf("GetVehicles: %v", err)
	}
	if len(got) != 2 || got[0].ID != "v2" || got[1].ID != "v1" {
		t.Fatalf("unexpected order %+v", got)
	}
}

var userRowColumns = []string{"id", "username", "email", "password_hash", "role", "first_name", "last_name", "phone_number",
	"is_active", "loyalty_points", "two_factor_secret", "two_factor_enabled", "created_at", "last_login"}

func TestPostgresRedeemPointsShortBalance(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET loyalty_points = loyalty_points - $2 WHERE id = $1 AND loyalty_points >= $2")).
		WithArgs("u1", 100).
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "ana", "ana@example.com", "hash", "user", "", "", "", true, 40, "", false, created, nil))

	_, err := store.RedeemPoints(context.Background(), "u1", 100)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRedeemPoints(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET loyalty_points")).
		WithArgs("u1", 100).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "ana", "ana@example.com", "hash", "user", "", "", "", true, 150, "", false, created, created))

	u, err := store.RedeemPoints(context.Background(), "u1", 100)
	if err != nil {
		t.Fatalf("RedeemPoints: %v", err)
	}
	if u.LoyaltyPoints != 150 || u.LastLogin == nil {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestPostgresCreateReservationCodeTaken(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateReservation(context.Background(), models.Reservation{ReservationCode: "TR-AAAAAAAA"})
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPostgresReservationRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	now := store.now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE reservation_code = $1")).
		WithArgs("TR-ABCDEFGH").
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "services", "total_price", "payment_status", "payment_reference",
			"reservation_code", "reservation_password", "created_at", "updated_at"}).
			AddRow("res1", "u1", []byte(`[{"route":"r1","vehicle":"v1","pickupDate":"2026-03-02","pickupTime":"09:00","isRoundTrip":true,"passengers":2,"quantity":1,"price":200,"status":"Pending"}]`),
				200.0, "Paid", "pi_1", "TR-ABCDEFGH", "hash", now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET services = $2")).
		WithArgs("res1", sqlmock.AnyArg(), 200.0, "Paid", "pi_1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r, err := store.GetReservationByCode(context.Background(), "TR-ABCDEFGH")
	if err != nil {
		t.Fatalf("GetReservationByCode: %v", err)
	}
	if len(r.Services) != 1 || !r.Services[0].IsRoundTrip || r.Services[0].Status != models.ServicePending {
		t.Fatalf("unexpected services %+v", r.Services)
	}
	r.Services[0].Status = models.ServiceConfirmed
	if err := store.UpdateReservation(context.Background(), r); err != nil {
		t.Fatalf("UpdateReservation: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateReservationMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateReservation(context.Background(), models.Reservation{ID: "nope"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresMissingReferenceIsNotFound(t *testing.T) {
	ctx := context.Background()
	fk := &pq.Error{Code: "23503"}
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO locations")).WillReturnError(fk)
	_, err := store.CreateLocation(ctx, models.Location{Name: "Airport", CityID: "nowhere"})
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "city" {
		t.Fatalf("expected city not found, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO routes")).WillReturnError(fk)
	_, err = store.CreateRoute(ctx, models.Route{OriginID: "lim", DestinationID: "nowhere"})
	if !errors.As(err, &nf) || nf.Resource != "location" {
		t.Fatalf("expected location not found, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).WillReturnError(fk)
	_, err = store.CreateVehicle(ctx, models.Vehicle{Name: "Van", ProviderID: "nowhere"})
	if !errors.As(err, &nf) || nf.Resource != "provider" {
		t.Fatalf("expected provider not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresEmptyListsAreNotNil(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY seq")).WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE ($1 = '' OR client_id = $1) ORDER BY seq")).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cities ORDER BY seq")).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "country"}))

	users, err := store.ListUsers(ctx)
	if err != nil || users == nil {
		t.Fatalf("ListUsers = %v, %v", users, err)
	}
	rs, err := store.ListReservations(ctx, "")
	if err != nil || rs == nil {
		t.Fatalf("ListReservations = %v, %v", rs, err)
	}
	cities, err := store.ListCities(ctx)
	if err != nil || cities == nil {
		t.Fatalf("ListCities = %v, %v", cities, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
