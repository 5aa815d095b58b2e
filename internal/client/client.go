// Package client talks to the transfer API on behalf of a customer and keeps
// their cart on the local disk.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/transfer-booking/internal/auth"
	"github.com/example/transfer-booking/internal/booking"
	"github.com/example/transfer-booking/internal/cart"
	"github.com/example/transfer-booking/internal/matcher"
	"github.com/example/transfer-booking/internal/models"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Status, e.Fields)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

type Client struct {
	Base  string
	Token string
	HTTP  *http.Client
}

func New(base, token string) *Client {
	return &Client{Base: base, Token: token, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (c *Client) Search(ctx context.Context, req models.SearchRequest) (matcher.SearchResult, error) {
	var res matcher.SearchResult
	err := c.do(ctx, http.MethodPost, "/api/search-vehicles", req, &res)
	return res, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var sess auth.Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: email, Password: password}, &sess)
	return sess, err
}

func (c *Client) Checkout(ctx context.Context, services []cart.Service, paymentMethod string) (booking.Created, error) {
	var created booking.Created
	err := c.do(ctx, http.MethodPost, "/api/reservations", booking.CheckoutRequest{Services: services, PaymentMethod: paymentMethod}, &created)
	return created, err
}

func (c *Client) Lookup(ctx context.Context, code, password string) (models.Reservation, error) {
	var r models.Reservation
	err := c.do(ctx, http.MethodPost, "/api/reservations/lookup", models.LookupRequest{Code: code, Password: password}, &r)
	return r, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Error != "" {
			apiErr.Message, apiErr.Fields = eb.Error, eb.Fields
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var (
	// ErrQuantity rejects vehicle quantities below one before they reach the cart.
	ErrQuantity   = errors.New("quantity must be at least 1")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrNotOffered = errors.New("vehicle not offered for this search")
)

// Session pairs the API with the customer's local cart.
type Session struct {
	API  *Client
	Cart *cart.Cart
}

// AddFromSearch puts the chosen vehicles of a search result into the cart as
// one new service. picks maps vehicle id to quantity.
func (s *Session) AddFromSearch(req models.SearchRequest, res matcher.SearchResult, picks map[string]int) (cart.Service, error) {
	svc := cart.Service{
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		DepartureDate: req.DepartureDate,
		DepartureTime: req.DepartureTime,
		ReturnDate:    req.ReturnDate,
		ReturnTime:    req.ReturnTime,
		IsRoundTrip:   req.IsRoundTrip,
		Passengers:    req.Passengers,
	}
	for _, v := range res.Vehicles {
		qty, ok := picks[v.ID]
		if !ok {
			continue
		}
		if qty < 1 {
			return cart.Service{}, ErrQuantity
		}
		svc.Vehicles = append(svc.Vehicles, cart.VehicleLine{ID: v.ID, Name: v.Name, Price: v.BasePrice, Quantity: qty})
	}
	if len(svc.Vehicles) != len(picks) {
		return cart.Service{}, ErrNotOffered
	}
	return s.Cart.AddService(svc)
}

func (s *Session) SetQuantity(serviceID, vehicleID string, qty int) error {
	if qty < 1 {
		return ErrQuantity
	}
	return s.Cart.UpdateVehicleQuantity(serviceID, vehicleID, qty)
}

// Checkout submits the cart. The local cart is cleared only after the server
// accepted and charged it.
func (s *Session) Checkout(ctx context.Context, paymentMethod string) (booking.Created, error) {
	if s.Cart.Len() == 0 {
		return booking.Created{}, ErrEmptyCart
	}
	created, err := s.API.Checkout(ctx, s.Cart.Services(), paymentMethod)
	if err != nil {
		return booking.Created{}, err
	}
	if err := s.Cart.Clear(); err != nil {
		return created, err
	}
	return created, nil
}
