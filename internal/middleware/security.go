// AngelaMos | 2026
// security.go

package middleware

import (
	"net/http"
	"strings"
)

func SecurityHeaders(isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), camera=()")

			forwardedTLS := strings.EqualFold(
				strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")),
				"https",
			)
			if isProduction && (r.TLS != nil || forwardedTLS) {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
