package middleware

import "net/http"

// DefaultMaxBodyBytes aplica cuando no se configura otro límite.
const DefaultMaxBodyBytes int64 = 1 << 20

// MaxBodySize corta con 413 los requests con Content-Length mayor a limit y
// envuelve el body con http.MaxBytesReader para los que no lo declaran.
// limit <= 0 usa DefaultMaxBodyBytes.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
