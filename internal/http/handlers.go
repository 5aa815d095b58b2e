// Package httpapi exposes the catalog, search, checkout and reservation
// operations over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/transfer-booking/internal/auth"
	"github.com/example/transfer-booking/internal/booking"
	"github.com/example/transfer-booking/internal/cache"
	"github.com/example/transfer-booking/internal/dispatch"
	"github.com/example/transfer-booking/internal/eta"
	"github.com/example/transfer-booking/internal/loyalty"
	"github.com/example/transfer-booking/internal/matcher"
	"github.com/example/transfer-booking/internal/storage"
)

// Deps are the collaborators a Server is built from. Cache is optional.
type Deps struct {
	Store       storage.Store
	Matcher     *matcher.Service
	Writer      *booking.Writer
	Checkout    *booking.Checkout
	Auth        *auth.Service
	Loyalty     *loyalty.Service
	Estimator   *eta.Estimator
	Hub         *dispatch.Hub
	Cache       *cache.Cache
	CORSOrigins []string
	Logger      *slog.Logger
}

type Server struct {
	store     storage.Store
	matcher   *matcher.Service
	writer    *booking.Writer
	checkout  *booking.Checkout
	auth      *auth.Service
	tokens    *auth.Tokens
	loyalty   *loyalty.Service
	estimator *eta.Estimator
	hub       *dispatch.Hub
	cache     *cache.Cache

	corsOrigins []string
	logger      *slog.Logger
	mux         *mux.Router
	handler     http.Handler
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		store:       d.Store,
		matcher:     d.Matcher,
		writer:      d.Writer,
		checkout:    d.Checkout,
		auth:        d.Auth,
		tokens:      d.Auth.Tokens,
		loyalty:     d.Loyalty,
		estimator:   d.Estimator,
		hub:         d.Hub,
		cache:       d.Cache,
		corsOrigins: origins,
		logger:      logger,
		mux:         mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	s.handler = s.cors(s.mux)
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.Handle("/ws", s.hub)

	api := s.mux.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	api.Handle("/cities", s.session(s.cached(s.handleListCities))).Methods("GET")
	api.Handle("/cities", s.staff(s.cached(s.handleCreateCity))).Methods("POST")
	api.Handle("/locations/nearby", s.session(s.cached(s.handleNearbyLocations))).Methods("GET")
	api.Handle("/locations", s.session(s.cached(s.handleListLocations))).Methods("GET")
	api.Handle("/locations", s.staff(s.cached(s.handleCreateLocation))).Methods("POST")
	api.Handle("/featured-destinations", s.session(s.cached(s.handleFeatured))).Methods("GET")
	api.Handle("/providers", s.session(s.cached(s.handleListProviders))).Methods("GET")
	api.Handle("/providers", s.staff(s.cached(s.handleCreateProvider))).Methods("POST")
	api.Handle("/routes", s.session(s.cached(s.handleListRoutes))).Methods("GET")
	api.Handle("/routes", s.staff(s.cached(s.handleCreateRoute))).Methods("POST")
	api.Handle("/vehicles", s.session(s.cached(s.handleListVehicles))).Methods("GET")
	api.Handle("/vehicles", s.staff(s.cached(s.handleCreateVehicle))).Methods("POST")
	api.Handle("/testimonials", s.session(s.cached(s.handleListTestimonials))).Methods("GET")
	api.Handle("/testimonials", s.session(s.cached(s.handleCreateTestimonial))).Methods("POST")
	api.Handle("/users", s.staff(http.HandlerFunc(s.handleListUsers))).Methods("GET")
	api.Handle("/users", s.staff(http.HandlerFunc(s.handleCreateUser))).Methods("POST")

	api.HandleFunc("/search-vehicles", s.handleSearch).Methods("POST")
	api.HandleFunc("/cart/quote", s.handleQuote).Methods("POST")

	api.Handle("/reservations", s.session(http.HandlerFunc(s.handleCheckout))).Methods("POST")
	api.Handle("/reservations", s.staff(http.HandlerFunc(s.handleListReservations))).Methods("GET")
	api.HandleFunc("/reservations/lookup", s.handleLookup).Methods("POST")
	api.Handle("/reservations/{code}/services/{index}", s.staff(http.HandlerFunc(s.handleServiceStatus))).Methods("PATCH")
	api.Handle("/reservations/{code}/payment", s.staff(http.HandlerFunc(s.handlePaymentStatus))).Methods("PATCH")
	api.Handle("/reservations/{code}/cancel", s.staff(http.HandlerFunc(s.handleCancel))).Methods("POST")

	api.Handle("/loyalty/redeem", s.session(http.HandlerFunc(s.handleRedeem))).Methods("POST")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) session(h http.Handler) http.Handler { return s.tokens.Require(h) }
func (s *Server) staff(h http.Handler) http.Handler   { return s.tokens.RequireStaff(h) }

// cached routes catalog reads and writes through the response cache when one
// is configured.
func (s *Server) cached(h http.HandlerFunc) http.Handler {
	if s.cache == nil {
		return h
	}
	return s.cache.Middleware(h)
}
