package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"linkloom/pkg/config"
)

// CORS builds the CORS handler from the configured origins. Development runs
// wide open; credentials are only allowed with explicit origins.
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}

	if cfg.IsDevelopment() {
		options.AllowedOrigins = []string{"*"}
	}
	if len(options.AllowedOrigins) == 1 && options.AllowedOrigins[0] == "*" {
		// AllowCredentials cannot be combined with a wildcard origin.
		options.AllowCredentials = false
	}

	return cors.Handler(options)
}
