package middleware

import (
	"net/http"
	"os"
)

func CORSMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			environment := os.Getenv("ENVIRONMENT")
			if environment == "" {
				environment = "development"
			}

			if environment == "production" {
				// Restrict to the configured frontend origin; requests from
				// anywhere else get no CORS headers at all.
				allowedOrigin := os.Getenv("FRONTEND_URL")
				origin := r.Header.Get("Origin")

				if allowedOrigin != "" && origin == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			} else {
				// Development/staging: allow the requesting origin with credentials
				origin := r.Header.Get("Origin")
				if origin == "" {
					origin = "http://localhost:3000"
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
