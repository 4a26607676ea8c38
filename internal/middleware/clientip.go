package middleware

import (
	"net"
	"net/http"
	"strings"
)

// clientIP returns the caller address. chi's RealIP runs first and rewrites
// RemoteAddr from X-Real-IP or X-Forwarded-For, so only RemoteAddr is trusted
// here. Ports and IPv6 zones are stripped.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if i := strings.IndexByte(addr, '%'); i >= 0 {
		addr = addr[:i]
	}
	if net.ParseIP(addr) == nil {
		return ""
	}
	return addr
}
