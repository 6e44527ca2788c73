package middleware

import (
	"net/http"

	"github.com/Varun5711/tinyauth/internal/enrichment"
)

// RealIP rewrites RemoteAddr to the client address when the request arrived
// through one of proxies. Requests from anyone else keep their socket peer, so
// downstream code can read enrichment.PeerIP without trusting headers.
func RealIP(proxies enrichment.TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(proxies) > 0 {
				r.RemoteAddr = proxies.ClientIP(r)
			}
			next.ServeHTTP(w, r)
		})
	}
}
