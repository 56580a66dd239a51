package middleware

import (
	"net/http"
	"strings"
)

// CORS answers cross-origin requests on pathPrefix using an origin allow-list.
// A "*" entry allows any origin; unknown origins get no CORS headers.
func CORS(allowed []string, pathPrefix string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, pathPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			headers := w.Header()
			headers.Add("Vary", "Origin")
			if origin := resolveOrigin(r.Header.Get("Origin"), allowed); origin != "" {
				headers.Set("Access-Control-Allow-Origin", origin)
				headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				headers.Set("Access-Control-Allow-Headers", "Content-Type")
				headers.Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveOrigin(requestOrigin string, allowed []string) string {
	if requestOrigin == "" {
		return ""
	}
	for _, candidate := range allowed {
		if candidate == "*" {
			return "*"
		}
		if strings.EqualFold(candidate, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
