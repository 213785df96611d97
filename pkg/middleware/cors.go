package middleware

import (
	"net/http"
	"strings"

	"farmlink/config"
)

// CORS sets the cross-origin headers from the CORS_ALLOWED_ORIGINS config
// value (comma-separated, "*" by default) and short-circuits preflights.
func CORS(next http.Handler) http.Handler {
	allowed := strings.Split(config.Get("CORS_ALLOWED_ORIGINS", "*"), ",")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		for _, a := range allowed {
			a = strings.TrimSpace(a)
			if a == "*" || a == origin {
				if a == "*" {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				break
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
