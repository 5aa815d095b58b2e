package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Require rejects requests without a valid bearer token.
func (t *Tokens) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := t.fromRequest(r)
		if !ok {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireStaff is Require plus a role gate. A wrong role gets the same 401
// as a missing token.
func (t *Tokens) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := t.fromRequest(r)
		if !ok || !id.IsStaff() {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional attaches an identity when a valid token is present and never rejects.
func (t *Tokens) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := t.fromRequest(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Tokens) fromRequest(r *http.Request) (Identity, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return Identity{}, false
	}
	id, err := t.Parse(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
