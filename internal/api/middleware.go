package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/cametumbling/badge-crawler/internal/authn"
)

type ctxKey int

const ctxKeyAPIKeyHash ctxKey = iota

// bearerToken extracts the token from an `Authorization: Bearer {token}`
// header, or "" if absent/malformed.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

// requireAdmin rejects any request whose bearer token isn't the
// coordinator's configured admin key.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if !s.auth.IsAdmin(token) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAnyKey accepts the admin key or any known API key, and stashes
// the caller's api_key_hash (authn.KeyHash of the bearer token) in the
// request context for handlers that need it (e.g. /work).
func (s *Server) requireAnyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		ok, err := s.auth.IsValid(r.Context(), token)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyAPIKeyHash, authn.KeyHash(token))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func apiKeyHashFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyAPIKeyHash).(string)
	return v
}
