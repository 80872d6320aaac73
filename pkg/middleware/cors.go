package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Cors lets browser dashboards on the given origins read the ops endpoints.
func Cors(allowOrigins ...string) mux.MiddlewareFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader, "traceparent"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
	})
	return c.Handler
}
