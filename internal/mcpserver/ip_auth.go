package mcpserver

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/ca-srg/medassist/internal/ratelimit"
)

// IPAuthMiddleware provides IP-based access control for the MCP server
type IPAuthMiddleware struct {
	allowedNets    []*net.IPNet
	trustedProxies []string
	logger         *log.Logger
}

// NewIPAuthMiddleware parses allowedIPs, each a single address or a CIDR block.
// Forwarded headers are honored only for peers listed in trustedProxies.
func NewIPAuthMiddleware(allowedIPs, trustedProxies []string, logger *log.Logger) (*IPAuthMiddleware, error) {
	if len(allowedIPs) == 0 {
		return nil, fmt.Errorf("no allowed IPs specified")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[mcpserver] ", log.LstdFlags)
	}

	for _, proxy := range trustedProxies {
		if _, err := parseCIDROrIP(strings.TrimSpace(proxy)); err != nil {
			return nil, fmt.Errorf("invalid trusted proxy: %w", err)
		}
	}

	m := &IPAuthMiddleware{trustedProxies: trustedProxies, logger: logger}
	for _, entry := range allowedIPs {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		network, err := parseCIDROrIP(entry)
		if err != nil {
			return nil, err
		}
		m.allowedNets = append(m.allowedNets, network)
	}
	if len(m.allowedNets) == 0 {
		return nil, fmt.Errorf("no allowed IPs specified")
	}
	return m, nil
}

// Middleware rejects clients outside the allowlist with 403
func (m *IPAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ratelimit.ClientIP(r, m.trustedProxies)
		if !m.IsIPAllowed(clientIP) {
			m.logger.Printf("Access denied for IP: %s (Path: %s, Method: %s)", clientIP, r.URL.Path, r.Method)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			if _, err := w.Write([]byte(`{"error": {"code": -32603, "message": "Access denied: IP not authorized"}}`)); err != nil {
				m.logger.Printf("Failed to write error response: %v", err)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsIPAllowed checks whether ipStr falls inside an allowed range
func (m *IPAuthMiddleware) IsIPAllowed(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range m.allowedNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// parseCIDROrIP parses s as CIDR notation or a single address widened to /32 or /128
func parseCIDROrIP(s string) (*net.IPNet, error) {
	if strings.Contains(s, "/") {
		_, network, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR block %s: %v", s, err)
		}
		return network, nil
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", s)
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}
