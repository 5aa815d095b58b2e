// Package cart is the client-held shopping cart: an ordered list of services,
// each a pickup/dropoff/date selection with one or more vehicle lines.
//
// Every mutation persists the full snapshot through a Store and reports a
// Notice to the optional Notifier. The cart is not safe for concurrent use;
// two writers sharing one Store are last-writer-wins.
package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEmptyService    = errors.New("a service must have at least one vehicle")
	ErrLastVehicleLine = errors.New("cannot remove the last vehicle of a service")
	ErrServiceNotFound = errors.New("service not found in cart")
)

type VehicleLine struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name"`
	Price    float64 `json:"price" validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"gte=1"`
}

type Service struct {
	ID            string        `json:"id"`
	Pickup        string        `json:"pickup" validate:"required"`
	Dropoff       string        `json:"dropoff" validate:"required"`
	DepartureDate string        `json:"departureDate" validate:"required,datetime=2006-01-02"`
	DepartureTime string        `json:"departureTime" validate:"omitempty,datetime=15:04"`
	ReturnDate    string        `json:"returnDate,omitempty" validate:"required_if=IsRoundTrip true,omitempty,datetime=2006-01-02"`
	ReturnTime    string        `json:"returnTime,omitempty" validate:"omitempty,datetime=15:04"`
	IsRoundTrip   bool          `json:"isRoundTrip"`
	Passengers    int           `json:"passengers,omitempty" validate:"gte=0"`
	Vehicles      []VehicleLine `json:"vehicles" validate:"min=1,dive"`
}

// Store persists cart snapshots. Load on a store that was never written
// returns an empty slice and no error.
type Store interface {
	Load() ([]Service, error)
	Save(services []Service) error
}

type Cart struct {
	services []Service
	store    Store
	notifier Notifier
}

// New returns an empty cart backed by store. Either argument may be nil.
func New(store Store, n Notifier) *Cart {
	return &Cart{store: store, notifier: n}
}

// Load restores the last snapshot saved in store.
func Load(store Store, n Notifier) (*Cart, error) {
	c := New(store, n)
	if store == nil {
		return c, nil
	}
	services, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c.services = services
	return c, nil
}

// Services returns a copy of the service lines in insertion order.
func (c *Cart) Services() []Service {
	out := make([]Service, len(c.services))
	for i, s := range c.services {
		out[i] = cloneService(s)
	}
	return out
}

func (c *Cart) Len() int { return len(c.services) }

func (c *Cart) Get(serviceID string) (Service, bool) {
	if i := c.index(serviceID); i >= 0 {
		return cloneService(c.services[i]), true
	}
	return Service{}, false
}

// AddService appends s as a new line. Matching pickup, dropoff or dates never
// merge with an existing line.
func (c *Cart) AddService(s Service) (Service, error) {
	if len(s.Vehicles) == 0 {
		c.notify(errorNotice(ErrEmptyService))
		return Service{}, ErrEmptyService
	}
	s = cloneService(s)
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	c.services = append(c.services, s)
	if err := c.persist(); err != nil {
		return Service{}, err
	}
	c.notify(Notice{Kind: NoticeInfo, Title: "Service added", Message: "The new service has been added to your cart."})
	return cloneService(s), nil
}

// RemoveService deletes the line with the given id. Unknown ids are a no-op.
func (c *Cart) RemoveService(serviceID string) error {
	i := c.index(serviceID)
	if i < 0 {
		return nil
	}
	c.services = append(c.services[:i], c.services[i+1:]...)
	if err := c.persist(); err != nil {
		return err
	}
	c.notify(Notice{Kind: NoticeInfo, Title: "Service removed", Message: "The service has been removed from your cart."})
	return nil
}

// UpdateVehicleQuantity sets the quantity of one vehicle line. It does not
// check the lower bound; callers reject quantities below 1. Unknown service or
// vehicle ids are a no-op.
func (c *Cart) UpdateVehicleQuantity(serviceID, vehicleID string, quantity int) error {
	i := c.index(serviceID)
	if i < 0 {
		return nil
	}
	matched := false
	for j := range c.services[i].Vehicles {
		if c.services[i].Vehicles[j].ID == vehicleID {
			c.services[i].Vehicles[j].Quantity = quantity
			matched = true
		}
	}
	if !matched {
		return nil
	}
	if err := c.persist(); err != nil {
		return err
	}
	c.notify(Notice{Kind: NoticeInfo, Title: "Quantity updated", Message: fmt.Sprintf("Vehicle quantity set to %d.", quantity)})
	return nil
}

// RemoveVehicleLine removes one vehicle line from a service. Removing the last
// line is refused and the service is left unchanged.
func (c *Cart) RemoveVehicleLine(serviceID, vehicleID string) error {
	i := c.index(serviceID)
	if i < 0 {
		return nil
	}
	kept := make([]VehicleLine, 0, len(c.services[i].Vehicles))
	for _, v := range c.services[i].Vehicles {
		if v.ID != vehicleID {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		c.notify(errorNotice(ErrLastVehicleLine))
		return ErrLastVehicleLine
	}
	c.services[i].Vehicles = kept
	if err := c.persist(); err != nil {
		return err
	}
	c.notify(Notice{Kind: NoticeInfo, Title: "Vehicle removed", Message: "The vehicle has been removed from the service."})
	return nil
}

// ReplaceVehicles swaps the whole vehicle set of a service.
func (c *Cart) ReplaceVehicles(serviceID string, lines []VehicleLine) error {
	i := c.index(serviceID)
	if i < 0 {
		return ErrServiceNotFound
	}
	if len(lines) == 0 {
		c.notify(errorNotice(ErrEmptyService))
		return ErrEmptyService
	}
	c.services[i].Vehicles = append([]VehicleLine(nil), lines...)
	if err := c.persist(); err != nil {
		return err
	}
	c.notify(Notice{Kind: NoticeInfo, Title: "Service modified", Message: "The service has been updated with the new vehicles."})
	return nil
}

func (c *Cart) Clear() error {
	c.services = nil
	if err := c.persist(); err != nil {
		return err
	}
	c.notify(Notice{Kind: NoticeInfo, Title: "Cart cleared", Message: "Your cart is now empty."})
	return nil
}

// Total is the sum of ServiceTotal over every line.
func (c *Cart) Total() float64 { return Total(c.services) }

// ServiceTotal sums price times quantity over the vehicle lines. A round trip
// doubles the sum; the return leg has no pricing of its own.
func ServiceTotal(s Service) float64 {
	var sum float64
	for _, v := range s.Vehicles {
		sum += v.Price * float64(v.Quantity)
	}
	if s.IsRoundTrip {
		return sum * 2
	}
	return sum
}

func Total(services []Service) float64 {
	var sum float64
	for _, s := range services {
		sum += ServiceTotal(s)
	}
	return sum
}

func (c *Cart) index(serviceID string) int {
	for i := range c.services {
		if c.services[i].ID == serviceID {
			return i
		}
	}
	return -1
}

func (c *Cart) persist() error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Save(c.Services()); err != nil {
		c.notify(Notice{Kind: NoticeError, Title: "Error", Message: "Your cart could not be saved."})
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *Cart) notify(n Notice) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func cloneService(s Service) Service {
	s.Vehicles = append([]VehicleLine(nil), s.Vehicles...)
	return s
}
