package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address of the client behind r.
// X-Forwarded-For and X-Real-IP are only read when the direct peer is in trustedProxies,
// so with no trusted proxies the result is always the remote host.
func ClientIP(r *http.Request, trustedProxies []string) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	if !isTrustedProxy(directIP, trustedProxies) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Walk the chain from right to left to find the first untrusted hop
		ips := strings.Split(xff, ",")
		for i := len(ips) - 1; i >= 0; i-- {
			ip := strings.TrimSpace(ips[i])
			if ip != "" && !isTrustedProxy(ip, trustedProxies) {
				return ip
			}
		}
		// Every hop is a trusted proxy, so the leftmost one originated the request
		if first := strings.TrimSpace(ips[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return directIP
}

// isTrustedProxy reports whether ip matches a single address or CIDR block in trustedProxies
func isTrustedProxy(ip string, trustedProxies []string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, trusted := range trustedProxies {
		trusted = strings.TrimSpace(trusted)
		if strings.Contains(trusted, "/") {
			_, network, err := net.ParseCIDR(trusted)
			if err == nil && network.Contains(parsedIP) {
				return true
			}
			continue
		}
		if trustedIP := net.ParseIP(trusted); trustedIP != nil && trustedIP.Equal(parsedIP) {
			return true
		}
	}
	return false
}
