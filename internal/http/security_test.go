package http

import (
	"net/http/httptest"
	"testing"

	"expensetracker/internal/services"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct peer", "203.0.113.9:5000", nil, "203.0.113.9"},
		{"untrusted peer ignores forwarding", "203.0.113.9:5000", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "203.0.113.9"},
		{"trusted proxy forwards", "10.0.0.5:5000", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.5"}, "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:5000", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"garbage forwarding falls back", "192.168.1.1:5000", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
		agent  string
		want   string
	}{
		{"plain report", "/report?year=2024&month=1", "Mozilla/5.0", ""},
		{"scanner path", "/.env", "", "path"},
		{"scanner agent", "/show", "sqlmap/1.7", "user_agent"},
		{"script in query", "/report?year=%3Cscript%3E", "", "query:year"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := suspiciousRequest(r); got != tt.want {
				t.Errorf("suspiciousRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuspiciousExpense(t *testing.T) {
	tests := []struct {
		in   services.Input
		want string
	}{
		{services.Input{Category: "food", Note: "lunch with Bob", Amount: "12,50"}, ""},
		{services.Input{Category: "food", Note: "<img src=x onerror=alert(1)>", Amount: "1"}, "note"},
		{services.Input{Category: "x'; DROP TABLE expenses;--", Amount: "1"}, "category"},
		{services.Input{Amount: "1 UNION SELECT 1"}, "amount"},
	}
	for i, tt := range tests {
		if got := suspiciousExpense(tt.in); got != tt.want {
			t.Errorf("case %d: suspiciousExpense() = %q, want %q", i, got, tt.want)
		}
	}
}
