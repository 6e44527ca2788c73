package enrichment

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

const (
	ScopeLocal   = "local"
	ScopePrivate = "private"
	ScopePublic  = "public"
	ScopeUnknown = "unknown"
)

// PeerIP returns the address of the connection's remote end, without the port.
func PeerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return "127.0.0.1"
	}
	return host
}

// TrustedProxies lists the networks whose forwarding headers are believed.
// The zero value trusts nobody.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts CIDRs or bare addresses.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var proxies TrustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			entry = fmt.Sprintf("%s/%d", ip.String(), bits)
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		proxies = append(proxies, network)
	}
	return proxies, nil
}

func (p TrustedProxies) Contains(address string) bool {
	ip := net.ParseIP(address)
	if ip == nil {
		return false
	}
	for _, network := range p {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the originating address of r. Forwarding headers are only
// read when the peer is a trusted proxy. X-Forwarded-For is walked from the
// right and the first hop outside the trusted set wins.
func (p TrustedProxies) ClientIP(r *http.Request) string {
	peer := PeerIP(r)
	if !p.Contains(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !p.Contains(hop) {
				return hop
			}
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}
	return peer
}

func IPScope(address string) string {
	ip := net.ParseIP(address)
	switch {
	case ip == nil:
		return ScopeUnknown
	case ip.IsLoopback():
		return ScopeLocal
	case ip.IsPrivate():
		return ScopePrivate
	default:
		return ScopePublic
	}
}
