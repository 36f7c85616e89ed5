package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the back-office key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards the admin routes. The raw key from AdminKeyHeader is
// compared against a bcrypt hash; an empty hash disables the admin API.
func AdminKey(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				http.Error(w, `{"error":"admin API disabled"}`, http.StatusServiceUnavailable)
				return
			}
			raw := r.Header.Get(AdminKeyHeader)
			if raw == "" {
				http.Error(w, `{"error":"missing admin key"}`, http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(raw)); err != nil {
				http.Error(w, `{"error":"invalid admin key"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
