package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/cart"
	"github.com/example/transfer-booking/internal/models"
)

func TestSearchRequestSchema(t *testing.T) {
	tests := []struct {
		name   string
		req    models.SearchRequest
		fields []string
	}{
		{
			name: "valid one way",
			req:  models.SearchRequest{Pickup: "a", Dropoff: "b", Passengers: 2, DepartureDate: "2026-03-01", DepartureTime: "09:30"},
		},
		{
			name:   "missing pickup and zero passengers",
			req:    models.SearchRequest{Dropoff: "b", DepartureDate: "2026-03-01"},
			fields: []string{"pickup", "passengers"},
		},
		{
			name:   "same pickup and dropoff",
			req:    models.SearchRequest{Pickup: "a", Dropoff: "a", Passengers: 1, DepartureDate: "2026-03-01"},
			fields: []string{"dropoff"},
		},
		{
			name:   "round trip needs a return date",
			req:    models.SearchRequest{Pickup: "a", Dropoff: "b", Passengers: 1, DepartureDate: "2026-03-01", IsRoundTrip: true},
			fields: []string{"returnDate"},
		},
		{
			name:   "bad date layout",
			req:    models.SearchRequest{Pickup: "a", Dropoff: "b", Passengers: 1, DepartureDate: "01/03/2026"},
			fields: []string{"departureDate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestVehicleRequestSchema(t *testing.T) {
	ok := models.VehicleRequest{
		Name: "Sprinter", Type: models.VehicleVan, Capacity: 12, Category: models.CategoryLuxurySupreme,
		BasePrice: 120, ProviderID: "p1",
	}
	require.NoError(t, Struct(ok))

	bad := ok
	bad.Capacity = 0
	bad.BasePrice = -1
	bad.Type = "Truck"
	err := Struct(bad)
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be greater than 0", verr.Fields["capacity"])
	assert.Contains(t, verr.Fields, "basePrice")
	assert.Contains(t, verr.Fields, "type")
}

func TestLocationRequestNestedCoordinates(t *testing.T) {
	req := models.LocationRequest{Name: "Cusco Airport", Type: models.LocationAirport, CityID: "c1"}
	req.Coordinates.Latitude = 120
	err := Struct(req)
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "coordinates.latitude")
}

func TestCartServiceDatesUseSearchLayouts(t *testing.T) {
	ok := cart.Service{
		Pickup: "a", Dropoff: "b", DepartureDate: "2026-03-01", DepartureTime: "09:30",
		Vehicles: []cart.VehicleLine{{ID: "v1", Price: 10, Quantity: 1}},
	}
	require.NoError(t, Struct(ok))

	bad := ok
	bad.DepartureDate = "01/03/2026"
	bad.DepartureTime = "9am"
	bad.IsRoundTrip = true
	bad.ReturnDate = "2026-13-40"
	err := Struct(bad)
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must match layout 2006-01-02", verr.Fields["departureDate"])
	assert.Contains(t, verr.Fields, "departureTime")
	assert.Contains(t, verr.Fields, "returnDate")

	bad = ok
	bad.IsRoundTrip = true
	err = Struct(bad)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "returnDate")
}
