package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS restricts which web origins may call the API. allowedOrigins comes
// from CORS_ORIGINS (comma separated) or the built-in frontend defaults.
// Tokens travel in the Authorization header, not cookies, so credentials
// are not allowed.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
