package middleware

import (
	"net"
	"net/http"
	"strings"
)

// IdentityFunc extracts the client identity from a request. An empty return
// means no identity could be derived.
type IdentityFunc func(r *http.Request) string

// TrustedHeaderIdentity extracts the client identity from a proxy-populated
// header such as X-Forwarded-For, taking the first (client-most) element.
// There is deliberately no RemoteAddr fallback: behind a trusted proxy a
// missing header is a protocol violation, not an anonymous client.
func TrustedHeaderIdentity(header string) IdentityFunc {
	return func(r *http.Request) string {
		value := r.Header.Get(header)
		if value == "" {
			return ""
		}
		return strings.TrimSpace(strings.Split(value, ",")[0])
	}
}

// RemoteAddrIdentity extracts the identity from the connection's remote
// address, for local setups without a fronting proxy.
func RemoteAddrIdentity() IdentityFunc {
	return func(r *http.Request) string {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}
