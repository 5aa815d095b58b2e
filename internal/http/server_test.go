package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/transfer-booking/internal/auth"
	"github.com/example/transfer-booking/internal/booking"
	"github.com/example/transfer-booking/internal/dispatch"
	"github.com/example/transfer-booking/internal/eta"
	"github.com/example/transfer-booking/internal/logging"
	"github.com/example/transfer-booking/internal/loyalty"
	"github.com/example/transfer-booking/internal/matcher"
	"github.com/example/transfer-booking/internal/models"
	"github.com/example/transfer-booking/internal/payments"
	"github.com/example/transfer-booking/internal/storage"
)

type fixture struct {
	srv        *Server
	store      *storage.MemoryStore
	gateway    *payments.FakeGateway
	adminTok   string
	userTok    string
	customerID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := storage.NewMemoryStore()

	_, err := st.CreateCity(ctx, models.City{ID: "lima", Name: "Lima", Country: "PE"})
	require.NoError(t, err)
	_, err = st.CreateLocation(ctx, models.Location{ID: "airport", Name: "Jorge Chavez", Type: models.LocationAirport, CityID: "lima",
		Coordinates: models.Coord{Lat: -12.0219, Lon: -77.1143}})
	require.NoError(t, err)
	_, err = st.CreateLocation(ctx, models.Location{ID: "miraflores", Name: "Miraflores", Type: models.LocationHotel, CityID: "lima",
		Coordinates: models.Coord{Lat: -12.1211, Lon: -77.0297}, IsFeatured: true})
	require.NoError(t, err)
	_, err = st.CreateProvider(ctx, models.Provider{ID: "p1", Name: "Lima Cabs", Email: "ops@limacabs.pe"})
	require.NoError(t, err)
	_, err = st.CreateVehicle(ctx, models.Vehicle{ID: "v1", Name: "Sedan", Capacity: 4, BasePrice: 100, ProviderID: "p1"})
	require.NoError(t, err)
	_, err = st.CreateVehicle(ctx, models.Vehicle{ID: "v2", Name: "Van", Capacity: 10, BasePrice: 180, ProviderID: "p1"})
	require.NoError(t, err)
	_, err = st.CreateRoute(ctx, models.Route{ID: "r1", OriginID: "airport", DestinationID: "miraflores", Distance: 16, EstimatedTime: 40, VehicleIDs: []string{"v2", "v1"}})
	require.NoError(t, err)

	hash, err := auth.HashPassword("customer-pass")
	require.NoError(t, err)
	customer, err := st.CreateUser(ctx, models.User{Username: "ana", Email: "ana@example.com", PasswordHash: hash, Role: models.RoleUser, IsActive: true, LoyaltyPoints: 50})
	require.NoError(t, err)

	tokens := auth.NewTokens("test-secret", time.Hour)
	logger := logging.Discard()
	hub := dispatch.NewHub(logger)
	writer := booking.NewWriter(st)
	gw := &payments.FakeGateway{}

	srv := NewServer(Deps{
		Store:     st,
		Matcher:   &matcher.Service{Catalog: st, Notifier: hub, Logger: logger},
		Writer:    writer,
		Checkout:  &booking.Checkout{Writer: writer, Gateway: gw, Currency: "usd", Notifier: hub, Logger: logger},
		Auth:      &auth.Service{Users: st, Tokens: tokens, Logger: logger},
		Loyalty:   &loyalty.Service{Users: st},
		Estimator: &eta.Estimator{SpeedKmh: 40},
		Hub:       hub,
		Logger:    logger,
	})

	adminTok, err := tokens.Issue(auth.Identity{UserID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	userTok, err := tokens.Issue(auth.Identity{UserID: customer.ID, Role: models.RoleUser})
	require.NoError(t, err)
	return &fixture{srv: srv, store: st, gateway: gw, adminTok: adminTok, userTok: userTok, customerID: customer.ID}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSearchVehicles(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/search-vehicles", "", models.SearchRequest{
		Pickup: "airport", Dropoff: "miraflores", Passengers: 5, DepartureDate: "2026-03-02",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[matcher.SearchResult](t, rec)
	assert.Equal(t, "r1", res.Route.ID)
	require.Len(t, res.Vehicles, 1)
	assert.Equal(t, "v2", res.Vehicles[0].ID)

	rec = f.do(t, http.MethodPost, "/api/search-vehicles", "", models.SearchRequest{
		Pickup: "miraflores", Dropoff: "airport", Passengers: 1, DepartureDate: "2026-03-02",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchRejectsInvalidBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/search-vehicles", "", models.SearchRequest{Pickup: "airport", Dropoff: "airport", DepartureDate: "March 2"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "dropoff")
	assert.Contains(t, body.Fields, "passengers")
	assert.Contains(t, body.Fields, "departureDate")

	req := httptest.NewRequest(http.MethodPost, "/api/search-vehicles", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogRequiresSessionAndStaffForWrites(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/cities", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/cities", f.userTok, nil).Code)

	city := models.CityRequest{Name: "Cusco", Country: "PE"}
	rec := f.do(t, http.MethodPost, "/api/cities", f.userTok, city)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/cities", f.adminTok, city)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Cusco", decodeBody[models.City](t, rec).Name)
}

func TestCreateRouteFillsEstimate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/routes", f.adminTok, models.RouteRequest{OriginID: "miraflores", DestinationID: "airport", VehicleIDs: []string{"v1"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	route := decodeBody[models.Route](t, rec)
	assert.InDelta(t, 14.3, route.Distance, 1.0)
	assert.Greater(t, route.EstimatedTime, 0.0)

	rec = f.do(t, http.MethodPost, "/api/routes", f.adminTok, models.RouteRequest{OriginID: "miraflores", DestinationID: "airport"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/routes", f.adminTok, models.RouteRequest{OriginID: "miraflores", DestinationID: "nowhere"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeaturedAndNearby(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/featured-destinations", f.userTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	featured := decodeBody[[]models.Location](t, rec)
	require.Len(t, featured, 1)
	assert.Equal(t, "miraflores", featured[0].ID)

	rec = f.do(t, http.MethodGet, "/api/locations/nearby?lat=-12.03&lon=-77.11&limit=1", f.userTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	near := decodeBody[[]models.Location](t, rec)
	require.Len(t, near, 1)
	assert.Equal(t, "airport", near[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/locations/nearby?lat=abc&lon=1", f.userTok, nil).Code)
}

func TestCartQuote(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{"services": []map[string]any{
		{"id": "a", "pickup": "airport", "dropoff": "miraflores", "departureDate": "2026-03-02", "returnDate": "2026-03-05", "isRoundTrip": true,
			"vehicles": []map[string]any{{"id": "v1", "name": "Sedan", "price": 100, "quantity": 2}}},
		{"id": "b", "pickup": "airport", "dropoff": "miraflores", "departureDate": "2026-03-02",
			"vehicles": []map[string]any{{"id": "v2", "name": "Van", "price": 150, "quantity": 1}}},
	}}
	rec := f.do(t, http.MethodPost, "/api/cart/quote", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decodeBody[quoteResponse](t, rec)
	assert.Equal(t, 550.0, q.Total)
	assert.Equal(t, 400.0, q.Services[0].Total)
}

func checkoutBody() map[string]any {
	return map[string]any{
		"paymentMethod": "pm_card_visa",
		"services": []map[string]any{{
			"pickup": "airport", "dropoff": "miraflores", "departureDate": "2026-03-02", "departureTime": "09:00", "passengers": 2,
			"vehicles": []map[string]any{
				{"id": "v1", "name": "Sedan", "price": 100, "quantity": 1},
				{"id": "v2", "name": "Van", "price": 180, "quantity": 1},
			},
		}},
	}
}

func TestCheckoutAndGuestLookup(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/reservations", "", checkoutBody()).Code)

	rec := f.do(t, http.MethodPost, "/api/reservations", f.userTok, checkoutBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[booking.Created](t, rec)
	r := created.Reservation
	assert.Equal(t, f.customerID, r.ClientID)
	assert.Equal(t, models.PaymentPaid, r.PaymentStatus)
	assert.Len(t, r.Services, 2)
	assert.Equal(t, 280.0, r.TotalPrice)
	assert.Contains(t, rec.Body.String(), `"reservationPassword"`)
	stored, err := f.store.GetReservationByCode(context.Background(), r.ReservationCode)
	require.NoError(t, err)
	require.NotEmpty(t, stored.PasswordHash)
	assert.NotContains(t, rec.Body.String(), stored.PasswordHash)

	rec = f.do(t, http.MethodPost, "/api/reservations/lookup", "", models.LookupRequest{Code: r.ReservationCode, Password: created.Password})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, r.ID, decodeBody[models.Reservation](t, rec).ID)

	rec = f.do(t, http.MethodPost, "/api/reservations/lookup", "", models.LookupRequest{Code: r.ReservationCode, Password: "guess"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutUsesCatalogFares(t *testing.T) {
	f := newFixture(t)
	body := checkoutBody()
	vehicles := body["services"].([]map[string]any)[0]["vehicles"].([]map[string]any)
	vehicles[1]["price"] = 0.01
	rec := f.do(t, http.MethodPost, "/api/reservations", f.userTok, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	vehicles[1]["id"] = "does-not-exist"
	rec = f.do(t, http.MethodPost, "/api/reservations", f.userTok, body)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Empty(t, f.gateway.Requests)
}

func TestCheckoutDeclined(t *testing.T) {
	f := newFixture(t)
	f.gateway.Decline = true
	rec := f.do(t, http.MethodPost, "/api/reservations", f.userTok, checkoutBody())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"payment declined"}`, rec.Body.String())

	all, err := f.store.ListReservations(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStaffReservationUpdates(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/reservations", f.userTok, checkoutBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody[booking.Created](t, rec).Reservation.ReservationCode

	path := "/api/reservations/" + code + "/services/1"
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPatch, path, f.userTok, models.ServiceStatusRequest{Status: models.ServiceConfirmed}).Code)

	rec = f.do(t, http.MethodPatch, path, f.adminTok, models.ServiceStatusRequest{Status: models.ServiceConfirmed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ServiceConfirmed, decodeBody[models.Reservation](t, rec).Services[1].Status)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPatch, "/api/reservations/"+code+"/services/9", f.adminTok, models.ServiceStatusRequest{Status: models.ServiceConfirmed}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, path, f.adminTok, map[string]string{"status": "Lost"}).Code)

	rec = f.do(t, http.MethodPatch, "/api/reservations/"+code+"/payment", f.adminTok, models.PaymentStatusRequest{Status: models.PaymentRefunded})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PaymentRefunded, decodeBody[models.Reservation](t, rec).PaymentStatus)

	rec = f.do(t, http.MethodPost, "/api/reservations/"+code+"/cancel", f.adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, s := range decodeBody[models.Reservation](t, rec).Services {
		assert.Equal(t, models.ServiceCancelled, s.Status)
	}

	rec = f.do(t, http.MethodGet, "/api/reservations?client="+f.customerID, f.adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Reservation](t, rec), 1)
}

func TestRegisterLoginAndRedeem(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{Username: "luis", Email: "luis@example.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = f.do(t, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{Username: "luis2", Email: "luis@example.com", Password: "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "ana@example.com", Password: "customer-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decodeBody[auth.Session](t, rec)
	assert.NotEmpty(t, sess.Token)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "ana@example.com", Password: "nope"}).Code)

	// ana holds 50 points
	rec = f.do(t, http.MethodPost, "/api/loyalty/redeem", sess.Token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Not enough points", decodeBody[errorBody](t, rec).Fields["loyaltyPoints"])
}

func TestUsersListIsStaffOnly(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/users", f.userTok, nil).Code)
	rec := f.do(t, http.MethodGet, "/api/users", f.adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestStaffCreatesUserWithRole(t *testing.T) {
	f := newFixture(t)
	body := models.CreateUserRequest{Username: "ops", Email: "Ops@Example.com", Password: "ops-password", Role: models.RoleAdmin}
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/users", f.userTok, body).Code)

	rec := f.do(t, http.MethodPost, "/api/users", f.adminTok, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "$2a$")
	u := decodeBody[models.User](t, rec)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "ops@example.com", u.Email)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "OPS@example.com", Password: "ops-password"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body.Username, body.Email, body.Role = "ops2", "ops2@example.com", "root"
	rec = f.do(t, http.MethodPost, "/api/users", f.adminTok, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Fields, "role")
}
