package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the configured admin front-ends to call the API with the
// session cookie. Credentials rule out a wildcard origin, so an empty list
// allows no cross-origin callers.
func CORS(origins []string) func(http.Handler) http.Handler {
	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: true,
	})

	return handler.Handler
}
