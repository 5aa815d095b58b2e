// Package cache serves repeated catalog GETs from Redis.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 5 * time.Minute
	keyPrefix  = "cache:"
)

// Backend is the key/value surface the middleware needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(c *redis.Client) *RedisBackend { return &RedisBackend{client: c} }

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisBackend) DeletePrefix(ctx context.Context, prefix string) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Cache is HTTP middleware. GET responses with status 200 are stored under
// their URL for TTL; a successful write to a collection drops every cached
// entry under that collection plus any Related collections.
type Cache struct {
	Backend Backend
	TTL     time.Duration
	Related map[string][]string // collection path -> extra paths to invalidate
	Logger  *slog.Logger
}

func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			c.serveGet(w, r, next)
			return
		}
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status < 300 {
			c.invalidate(r.Context(), collection(r.URL.Path))
		}
	})
}

func (c *Cache) serveGet(w http.ResponseWriter, r *http.Request, next http.Handler) {
	key := keyPrefix + r.URL.RequestURI()
	if body, ok, err := c.Backend.Get(r.Context(), key); err != nil {
		c.log().Warn("cache get failed", "key", key, "err", err)
	} else if ok {
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
		return
	}

	w.Header().Set("X-Cache", "MISS")
	rec := &recorder{ResponseWriter: w, status: http.StatusOK, capture: true}
	next.ServeHTTP(rec, r)
	if rec.status != http.StatusOK {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := c.Backend.Set(r.Context(), key, rec.body.String(), ttl); err != nil {
		c.log().Warn("cache set failed", "key", key, "err", err)
	}
}

func (c *Cache) invalidate(ctx context.Context, path string) {
	for _, p := range append([]string{path}, c.Related[path]...) {
		if err := c.Backend.DeletePrefix(ctx, keyPrefix+p); err != nil {
			c.log().Warn("cache invalidate failed", "prefix", p, "err", err)
		}
	}
}

func (c *Cache) log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// collection trims a path to its first two segments: /api/routes/x -> /api/routes.
func collection(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}

type recorder struct {
	http.ResponseWriter
	status  int
	capture bool
	body    bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.capture {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}
