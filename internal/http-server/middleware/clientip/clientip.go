package clientip

import (
	"net"
	"net/http"

	"tiergate/lib/api/cont"
)

// New stores the peer address in the request context. It runs after
// chi's RealIP, so a proxy's X-Real-IP or X-Forwarded-For wins over the
// socket address.
func New() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(cont.PutClientIP(r.Context(), Host(r.RemoteAddr))))
		}
		return http.HandlerFunc(fn)
	}
}

// Host strips the port from a host:port address.
func Host(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
