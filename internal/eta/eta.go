// Package eta estimates the driving distance and duration of a route leg.
// Admins may omit both when creating a route; the catalog fills them here.
package eta

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/example/transfer-booking/internal/geo"
	"github.com/example/transfer-booking/internal/models"
)

// Leg is the estimate for one origin to destination trip.
type Leg struct {
	DistanceKm float64
	Minutes    float64
}

// Client is a routing engine lookup.
type Client interface {
	Estimate(ctx context.Context, from, to models.Coord) (Leg, error)
}

// Cache is a tiny in-memory cache for leg lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  Leg
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) (Leg, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return Leg{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return Leg{}, false
	}
	return e.v, true
}

func (c *Cache) Set(a, b models.Coord, v Leg) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// Naive estimate: great-circle distance at a constant speed.
func Naive(from, to models.Coord, speedKmh float64) Leg {
	if speedKmh <= 0 {
		speedKmh = 40
	}
	d := geo.DistanceKm(from, to)
	return Leg{DistanceKm: round1(d), Minutes: math.Ceil(d / speedKmh * 60)}
}

// Estimator prefers the routing client and falls back to Naive when it is
// absent or fails.
type Estimator struct {
	Client   Client // optional OSRM client
	Cache    *Cache // optional
	SpeedKmh float64
}

func (e *Estimator) Estimate(ctx context.Context, from, to models.Coord) Leg {
	if e.Cache != nil {
		if v, ok := e.Cache.Get(from, to); ok {
			return v
		}
	}
	if e.Client != nil {
		if v, err := e.Client.Estimate(ctx, from, to); err == nil {
			if e.Cache != nil {
				e.Cache.Set(from, to, v)
			}
			return v
		}
	}
	return Naive(from, to, e.SpeedKmh)
}

// FillRoute sets Distance and EstimatedTime on r when they are zero.
func (e *Estimator) FillRoute(ctx context.Context, r *models.Route, from, to models.Coord) {
	if r.Distance > 0 && r.EstimatedTime > 0 {
		return
	}
	leg := e.Estimate(ctx, from, to)
	if r.Distance == 0 {
		r.Distance = leg.DistanceKm
	}
	if r.EstimatedTime == 0 {
		r.EstimatedTime = leg.Minutes
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
