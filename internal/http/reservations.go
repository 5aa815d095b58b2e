package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/auth"
	"github.com/example/transfer-booking/internal/booking"
	"github.com/example/transfer-booking/internal/cart"
	"github.com/example/transfer-booking/internal/models"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.CreateUser(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.matcher.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type quoteRequest struct {
	Services []cart.Service `json:"services" validate:"required,min=1,dive"`
}

type serviceQuote struct {
	ID    string  `json:"id"`
	Total float64 `json:"total"`
}

type quoteResponse struct {
	Services []serviceQuote `json:"services"`
	Total    float64        `json:"total"`
}

// handleQuote prices a posted cart without storing anything.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := quoteResponse{Services: make([]serviceQuote, 0, len(req.Services)), Total: cart.Total(req.Services)}
	for _, svc := range req.Services {
		resp.Services = append(resp.Services, serviceQuote{ID: svc.ID, Total: cart.ServiceTotal(svc)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeError(w, r, apperr.ErrUnauthorized)
		return
	}
	var req booking.CheckoutRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.checkout.Run(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	rs, err := s.writer.List(r.Context(), r.URL.Query().Get("client"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req models.LookupRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.writer.Lookup(r.Context(), req.Code, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.writeError(w, r, apperr.Invalid("index", "must be an integer"))
		return
	}
	var req models.ServiceStatusRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.writer.UpdateServiceStatus(r.Context(), vars["code"], index, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentStatusRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.writer.UpdatePaymentStatus(r.Context(), mux.Vars(r)["code"], req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	res, err := s.writer.Cancel(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeError(w, r, apperr.ErrUnauthorized)
		return
	}
	u, err := s.loyalty.Redeem(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Points redeemed", "loyaltyPoints": u.LoyaltyPoints})
}
