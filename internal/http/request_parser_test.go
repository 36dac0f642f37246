package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantField string
	}{
		{"both provided", url.Values{"year": {"2023"}, "month": {"12"}}, 2023, 12, ""},
		{"defaults to now", url.Values{}, 2024, 6, ""},
		{"only month", url.Values{"month": {"2"}}, 2024, 2, ""},
		{"whitespace is trimmed", url.Values{"year": {" 2022 "}, "month": {" 7"}}, 2022, 7, ""},
		{"month out of range", url.Values{"month": {"13"}}, 2024, 13, "month"},
		{"month zero", url.Values{"month": {"0"}}, 2024, 0, "month"},
		{"month not a number", url.Values{"month": {"june"}}, 2024, 6, "month"},
		{"year not a number", url.Values{"year": {"abc"}}, 2024, 6, "year"},
		{"year zero", url.Values{"year": {"0"}}, 0, 6, "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now)

			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *core.ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestParseExpenseForm(t *testing.T) {
	form := url.Values{
		"date":     {" 2024-01-05 "},
		"category": {"food\x00"},
		"note":     {"lunch\twith team"},
		"amount":   {"12,50"},
	}

	in := ParseExpenseForm(form)

	if in.Date != "2024-01-05" {
		t.Errorf("Date = %q", in.Date)
	}
	if in.Category != "food" {
		t.Errorf("Category = %q, control characters must be stripped", in.Category)
	}
	if in.Note != "lunch\twith team" {
		t.Errorf("Note = %q", in.Note)
	}
	if in.Amount != "12,50" {
		t.Errorf("Amount = %q", in.Amount)
	}

	if empty := ParseExpenseForm(url.Values{}); empty.Amount != "" || empty.Category != "" {
		t.Errorf("empty form = %+v", empty)
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, false},
		{"GET allowed with multiple", http.MethodGet, []string{http.MethodGet, http.MethodPost}, false},
		{"GET not allowed", http.MethodGet, []string{http.MethodPost}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func TestRequirePOST(t *testing.T) {
	postReq := httptest.NewRequest(http.MethodPost, "/test", nil)
	if result := RequirePOST(postReq); result != nil {
		t.Error("RequirePOST should allow POST requests")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/test", nil)
	result := RequirePOST(getReq)
	if result == nil {
		t.Fatal("RequirePOST should reject GET requests")
	}
	w := httptest.NewRecorder()
	result.Write(w)
	if w.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Allow header = %q", w.Header().Get("Allow"))
	}
}

func TestParseFormOrFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("amount=3"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if result := ParseFormOrFail(req); result != nil {
		t.Error("Expected nil for valid form, got error response")
	}
	if req.Form.Get("amount") != "3" {
		t.Error("Form was not parsed correctly")
	}

	bad := httptest.NewRequest(http.MethodPost, "/test?%zz", strings.NewReader(""))
	bad.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	result := ParseFormOrFail(bad)
	if result == nil {
		t.Fatal("Expected error response for a malformed query")
	}
	w := httptest.NewRecorder()
	result.Write(w)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
