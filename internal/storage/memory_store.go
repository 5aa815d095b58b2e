package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
)

// table keeps records by id plus their insertion order.
type table[T any] struct {
	byID  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{byID: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.byID[id]; !ok {
		t.order = append(t.order, id)
	}
	t.byID[id] = v
}

func (t *table[T]) list(keep func(T) bool, limit int) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		v := t.byID[id]
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type MemoryStore struct {
	mu           sync.RWMutex
	cities       *table[models.City]
	locations    *table[models.Location]
	providers    *table[models.Provider]
	routes       *table[models.Route]
	vehicles     *table[models.Vehicle]
	testimonials *table[models.Testimonial]
	users        *table[models.User]
	reservations *table[models.Reservation]
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cities:       newTable[models.City](),
		locations:    newTable[models.Location](),
		providers:    newTable[models.Provider](),
		routes:       newTable[models.Route](),
		vehicles:     newTable[models.Vehicle](),
		testimonials: newTable[models.Testimonial](),
		users:        newTable[models.User](),
		reservations: newTable[models.Reservation](),
		now:          time.Now,
	}
}

func (m *MemoryStore) Close() error { return nil }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (m *MemoryStore) ListCities(ctx context.Context) ([]models.City, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cities.list(nil, 0), nil
}

func (m *MemoryStore) CreateCity(ctx context.Context, c models.City) (models.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = newID(c.ID)
	m.cities.put(c.ID, c)
	return c, nil
}

func (m *MemoryStore) ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locations.list(func(l models.Location) bool {
		if f.CityID != "" && l.CityID != f.CityID {
			return false
		}
		if f.Type != "" && l.Type != f.Type {
			return false
		}
		return !f.Featured || l.IsFeatured
	}, f.Limit), nil
}

func (m *MemoryStore) GetLocation(ctx context.Context, id string) (models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations.byID[id]
	if !ok {
		return models.Location{}, apperr.NotFound("location")
	}
	return l, nil
}

func (m *MemoryStore) CreateLocation(ctx context.Context, l models.Location) (models.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cities.byID[l.CityID]; !ok {
		return models.Location{}, apperr.NotFound("city")
	}
	l.ID = newID(l.ID)
	l.Images = append([]string(nil), l.Images...)
	m.locations.put(l.ID, l)
	return l, nil
}

func (m *MemoryStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers.list(nil, 0), nil
}

func (m *MemoryStore) CreateProvider(ctx context.Context, p models.Provider) (models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = newID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now().UTC()
	}
	m.providers.put(p.ID, p)
	return p, nil
}

func (m *MemoryStore) ListRoutes(ctx context.Context) ([]models.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routes.list(nil, 0), nil
}

func (m *MemoryStore) GetRoute(ctx context.Context, id string) (models.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routes.byID[id]
	if !ok {
		return models.Route{}, apperr.NotFound("route")
	}
	return r, nil
}

func (m *MemoryStore) FindRoute(ctx context.Context, originID, destinationID string) (models.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.routes.order {
		r := m.routes.byID[id]
		if r.OriginID == originID && r.DestinationID == destinationID {
			return r, nil
		}
	}
	return models.Route{}, apperr.NotFound("route")
}

func (m *MemoryStore) CreateRoute(ctx context.Context, r models.Route) (models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.OriginID == r.DestinationID {
		return models.Route{}, apperr.Invalid("destination", "must differ from origin")
	}
	for _, id := range []string{r.OriginID, r.DestinationID} {
		if _, ok := m.locations.byID[id]; !ok {
			return models.Route{}, apperr.NotFound("location")
		}
	}
	for _, id := range m.routes.order {
		ex := m.routes.byID[id]
		if ex.OriginID == r.OriginID && ex.DestinationID == r.DestinationID {
			return models.Route{}, apperr.Conflict("route", "a route for this origin and destination already exists")
		}
	}
	r.ID = newID(r.ID)
	r.VehicleIDs = append([]string(nil), r.VehicleIDs...)
	m.routes.put(r.ID, r)
	return r, nil
}

func (m *MemoryStore) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vehicles.list(nil, 0), nil
}

func (m *MemoryStore) GetVehicles(ctx context.Context, ids []string) ([]models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Vehicle, 0, len(ids))
	for _, id := range ids {
		if v, ok := m.vehicles.byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers.byID[v.ProviderID]; !ok {
		return models.Vehicle{}, apperr.NotFound("provider")
	}
	v.ID = newID(v.ID)
	m.vehicles.put(v.ID, v)
	return v, nil
}

func (m *MemoryStore) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.testimonials.list(nil, 0)
	// newest first
	out := make([]models.Testimonial, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = newID(t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now().UTC()
	}
	m.testimonials.put(t.ID, t)
	return t, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.users.order {
		ex := m.users.byID[id]
		if strings.EqualFold(ex.Email, u.Email) {
			return models.User{}, apperr.Conflict("user", "email already registered")
		}
		if ex.Username == u.Username {
			return models.User{}, apperr.Conflict("user", "username already taken")
		}
	}
	u.ID = newID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now().UTC()
	}
	m.users.put(u.ID, u)
	return u, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users.byID[id]
	if !ok {
		return models.User{}, apperr.NotFound("user")
	}
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.users.order {
		if u := m.users.byID[id]; strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user")
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users.list(nil, 0), nil
}

func (m *MemoryStore) RedeemPoints(ctx context.Context, userID string, n int) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users.byID[userID]
	if !ok {
		return models.User{}, apperr.NotFound("user")
	}
	if u.LoyaltyPoints < n {
		return models.User{}, ErrInsufficientPoints
	}
	u.LoyaltyPoints -= n
	m.users.put(u.ID, u)
	return u, nil
}

func (m *MemoryStore) TouchLogin(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users.byID[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	now := m.now().UTC()
	u.LastLogin = &now
	m.users.put(u.ID, u)
	return nil
}

func (m *MemoryStore) CreateReservation(ctx context.Context, r models.Reservation) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.reservations.order {
		if m.reservations.byID[id].ReservationCode == r.ReservationCode {
			return models.Reservation{}, apperr.Conflict("reservation", "code already in use")
		}
	}
	r.ID = newID(r.ID)
	now := m.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.Services = append([]models.ReservationService(nil), r.Services...)
	m.reservations.put(r.ID, r)
	return r, nil
}

func (m *MemoryStore) GetReservationByCode(ctx context.Context, code string) (models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.reservations.order {
		if r := m.reservations.byID[id]; r.ReservationCode == code {
			r.Services = append([]models.ReservationService(nil), r.Services...)
			return r, nil
		}
	}
	return models.Reservation{}, apperr.NotFound("reservation")
}

func (m *MemoryStore) ListReservations(ctx context.Context, clientID string) ([]models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reservations.list(func(r models.Reservation) bool {
		return clientID == "" || r.ClientID == clientID
	}, 0), nil
}

func (m *MemoryStore) UpdateReservation(ctx context.Context, r models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations.byID[r.ID]; !ok {
		return apperr.NotFound("reservation")
	}
	r.UpdatedAt = m.now().UTC()
	r.Services = append([]models.ReservationService(nil), r.Services...)
	m.reservations.put(r.ID, r)
	return nil
}
