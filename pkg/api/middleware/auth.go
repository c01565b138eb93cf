// Package middleware provides HTTP middleware for the pihole-api server.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// BearerAuth is a middleware that requires the X-Pi-hole-Authenticate
// header to carry a key matching the configured one, compared by
// constant-time equality so response timing does not leak how much of the
// key was guessed correctly.
func BearerAuth(key string) func(http.Handler) http.Handler {
	want := []byte(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("X-Pi-hole-Authenticate"))

			if len(got) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized writes the same {data, errors} envelope shape as
// pkg/api's Envelope, duplicated here (rather than imported) to avoid an
// import cycle between pkg/api and pkg/api/middleware.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"errors": []map[string]string{
			{"key": "X-Pi-hole-Authenticate", "message": "missing or invalid authentication key"},
		},
	})
}
