package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"expensetracker/internal/services"
)

// securityMetrics counts events reported by /healthz.
type securityMetrics struct {
	rateLimitHits      int64
	suspiciousRequests int64
}

// trustedProxies may set X-Forwarded-For and X-Real-IP.
var trustedProxies = mustParseCIDRs("127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128")

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("parse trusted proxy CIDR %s: %v", cidr, err))
		}
		nets = append(nets, n)
	}
	return nets
}

func isTrustedProxy(ip net.IP) bool {
	for _, n := range trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy.
func extractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil || !isTrustedProxy(ip) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

// Paths and agents seen from scanners. The ledger serves none of these paths.
var (
	scannerPaths  = []string{"../", "..\\", ".env", ".git", "wp-admin", "phpmyadmin", ".php", "etc/passwd", "cmd.exe"}
	scannerAgents = []string{"sqlmap", "nikto", "nmap", "gobuster", "dirb", "masscan", "zgrab"}
)

// injectionMarkers flag markup or SQL typed into ledger fields. Templates
// escape every field and queries are parameterised, so these are only counted.
var injectionMarkers = []string{"<script", "javascript:", "onerror=", "onload=", "union select", "drop table", "';--", "eval("}

func hasInjectionMarker(value string) bool {
	v := strings.ToLower(value)
	for _, m := range injectionMarkers {
		if strings.Contains(v, m) {
			return true
		}
	}
	return false
}

// suspiciousRequest names what makes r look hostile, or returns "".
func suspiciousRequest(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	for _, p := range scannerPaths {
		if strings.Contains(path, p) {
			return "path"
		}
	}

	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "user_agent"
		}
	}

	// /report only takes year and month.
	if len(r.URL.RawQuery) > 256 {
		return "query_length"
	}
	for key, values := range r.URL.Query() {
		for _, v := range values {
			if hasInjectionMarker(v) {
				return "query:" + key
			}
		}
	}
	return ""
}

// suspiciousExpense names the first expense form field that carries markup
// or SQL, or returns "".
func suspiciousExpense(in services.Input) string {
	fields := []struct{ name, value string }{
		{"category", in.Category},
		{"note", in.Note},
		{"date", in.Date},
		{"amount", in.Amount},
	}
	for _, f := range fields {
		if hasInjectionMarker(f.value) {
			return f.name
		}
	}
	return ""
}
