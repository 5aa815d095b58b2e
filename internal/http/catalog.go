package httpapi

import (
	"net/http"
	"strconv"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/geo"
	"github.com/example/transfer-booking/internal/models"
	"github.com/example/transfer-booking/internal/storage"
)

const (
	featuredLimit    = 6
	testimonialLimit = 4
	nearbyLimit      = 5
)

// storeErr passes taxonomy errors through and wraps anything else as a
// store failure.
func storeErr(op string, err error) error {
	if apperr.IsNotFound(err) || apperr.IsConflict(err) || apperr.IsValidation(err) {
		return err
	}
	return apperr.Collaborator(op, err)
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.store.ListCities(r.Context())
	if err != nil {
		s.writeError(w, r, storeErr("list cities", err))
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

func (s *Server) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	var req models.CityRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.store.CreateCity(r.Context(), models.City{Name: req.Name, Country: req.Country})
	if err != nil {
		s.writeError(w, r, storeErr("create city", err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locs, err := s.store.ListLocations(r.Context(), storage.LocationFilter{
		CityID: q.Get("city"),
		Type:   models.LocationType(q.Get("type")),
	})
	if err != nil {
		s.writeError(w, r, storeErr("list locations", err))
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// handleNearbyLocations orders locations by distance from ?lat=&lon=.
func (s *Server) handleNearbyLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		s.writeError(w, r, &apperr.ValidationError{Fields: map[string]string{"lat": "must be a latitude", "lon": "must be a longitude"}})
		return
	}
	limit := nearbyLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, apperr.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	locs, err := s.store.ListLocations(r.Context(), storage.LocationFilter{CityID: q.Get("city")})
	if err != nil {
		s.writeError(w, r, storeErr("list locations", err))
		return
	}
	writeJSON(w, http.StatusOK, geo.Nearest(locs, models.Coord{Lat: lat, Lon: lon}, limit))
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.LocationRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.store.CreateLocation(r.Context(), models.Location{
		Name:        req.Name,
		Type:        req.Type,
		CityID:      req.CityID,
		Coordinates: models.Coord{Lat: req.Coordinates.Latitude, Lon: req.Coordinates.Longitude},
		Description: req.Description,
		Images:      req.Images,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		s.writeError(w, r, storeErr("create location", err))
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	locs, err := s.store.ListLocations(r.Context(), storage.LocationFilter{Featured: true, Limit: featuredLimit})
	if err != nil {
		s.writeError(w, r, storeErr("featured locations", err))
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store.ListProviders(r.Context())
	if err != nil {
		s.writeError(w, r, storeErr("list providers", err))
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req models.ProviderRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.store.CreateProvider(r.Context(), models.Provider{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		s.writeError(w, r, storeErr("create provider", err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.store.ListRoutes(r.Context())
	if err != nil {
		s.writeError(w, r, storeErr("list routes", err))
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

// handleCreateRoute fills a missing distance or travel time from the
// endpoints' coordinates before storing.
func (s *Server) handleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req models.RouteRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	origin, err := s.store.GetLocation(ctx, req.OriginID)
	if err != nil {
		s.writeError(w, r, storeErr("get origin", err))
		return
	}
	dest, err := s.store.GetLocation(ctx, req.DestinationID)
	if err != nil {
		s.writeError(w, r, storeErr("get destination", err))
		return
	}
	route := models.Route{
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		Distance:      req.Distance,
		EstimatedTime: req.EstimatedTime,
		VehicleIDs:    req.VehicleIDs,
	}
	if s.estimator != nil {
		s.estimator.FillRoute(ctx, &route, origin.Coordinates, dest.Coordinates)
	}
	created, err := s.store.CreateRoute(ctx, route)
	if err != nil {
		s.writeError(w, r, storeErr("create route", err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vs, err := s.store.ListVehicles(r.Context())
	if err != nil {
		s.writeError(w, r, storeErr("list vehicles", err))
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req models.VehicleRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.store.CreateVehicle(r.Context(), models.Vehicle{
		Name:       req.Name,
		Type:       req.Type,
		Capacity:   req.Capacity,
		Luggage:    req.Luggage,
		Category:   req.Category,
		BasePrice:  req.BasePrice,
		Image:      req.Image,
		ProviderID: req.ProviderID,
	})
	if err != nil {
		s.writeError(w, r, storeErr("create vehicle", err))
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListTestimonials(w http.ResponseWriter, r *http.Request) {
	ts, err := s.store.ListTestimonials(r.Context(), testimonialLimit)
	if err != nil {
		s.writeError(w, r, storeErr("list testimonials", err))
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleCreateTestimonial(w http.ResponseWriter, r *http.Request) {
	var req models.TestimonialRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.store.CreateTestimonial(r.Context(), models.Testimonial{Name: req.Name, Content: req.Content, Rating: req.Rating})
	if err != nil {
		s.writeError(w, r, storeErr("create testimonial", err))
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, storeErr("list users", err))
		return
	}
	writeJSON(w, http.StatusOK, users)
}
