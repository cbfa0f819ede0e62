package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// WithCORS adds CORS middleware.
func WithCORS() func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		middleware := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"*"},
		})
		return middleware.Handler(h)
	}
}
