package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/storage/memory"
	"expensetracker/internal/storage/storetest"
)

func newTestServer(t *testing.T, ledger Ledger, opts ...ServerOption) *Server {
	t.Helper()
	srv := NewServer(":0", ledger, nil, "", opts...)
	srv.now = func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.Local) }
	t.Cleanup(srv.limiter.stop)
	return srv
}

func newSeededLedger(t *testing.T) *services.Ledger {
	t.Helper()
	l := services.NewLedger(memory.New())
	for _, e := range storetest.Fixture() {
		_, err := l.AddExpense(context.Background(), e)
		require.NoError(t, err)
	}
	return l
}

func serve(srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

// brokenLedger fails every storage call.
type brokenLedger struct {
	*services.Ledger
	err error
}

func (b brokenLedger) ClearAll(context.Context) error { return b.err }
func (b brokenLedger) Ping(context.Context) error     { return b.err }

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, services.NewLedger(memory.New()))

	rr := serve(srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Add Expense")
	assert.Contains(t, body, `placeholder="2024-01-15"`)
	assert.Contains(t, body, `placeholder="General"`)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"), path)
	}

	rr = serve(srv, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, services.NewLedger(memory.New()))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	ledger := services.NewLedger(memory.New())
	srv := newTestServer(t, ledger)

	rr := serve(srv, http.MethodPost, "/", url.Values{"category": {"food"}, "amount": {"abc"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid amount")
	assert.Contains(t, rr.Body.String(), `value="food"`, "the form keeps what the user typed")

	rr = serve(srv, http.MethodPost, "/", url.Values{"date": {"2024-02-30"}, "amount": {"5"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid date")

	all, err := ledger.Expenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	rr = serve(srv, http.MethodPost, "/", url.Values{
		"date": {"2024-01-05"}, "category": {"food"}, "note": {"lunch"}, "amount": {"12.50"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/show", rr.Header().Get("Location"))

	rr = serve(srv, http.MethodPost, "/", url.Values{"amount": {"3"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	all, err = ledger.Expenses(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "lunch", all[0].Note)
	assert.Equal(t, 12.5, all[0].Amount)
	assert.Equal(t, core.DefaultCategory, all[1].Category)
	assert.Equal(t, "2024-01-15", all[1].Date.String())
}

func TestIndexRejectsOtherMethods(t *testing.T) {
	srv := newTestServer(t, services.NewLedger(memory.New()))

	rr := serve(srv, http.MethodDelete, "/", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestShowPage(t *testing.T) {
	t.Run("with data", func(t *testing.T) {
		srv := newTestServer(t, newSeededLedger(t))
		for _, path := range []string{"/show", "/dashboard"} {
			rr := serve(srv, http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, rr.Code, path)
			body := rr.Body.String()
			assert.Contains(t, body, "Most money spent on <strong>food</strong>: 50.00")
			assert.Contains(t, body, `id="pie"`)
			assert.Contains(t, body, "transit")
			assert.Contains(t, body, "dinner")
		}
	})

	t.Run("empty ledger", func(t *testing.T) {
		srv := newTestServer(t, services.NewLedger(memory.New()))
		rr := serve(srv, http.MethodGet, "/show", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "No data to chart yet.")
		assert.NotContains(t, rr.Body.String(), `id="pie"`)
	})
}

func TestClear(t *testing.T) {
	ledger := newSeededLedger(t)
	srv := newTestServer(t, ledger)

	rr := serve(srv, http.MethodGet, "/clear", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = serve(srv, http.MethodPost, "/clear", url.Values{})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/show", rr.Header().Get("Location"))

	all, err := ledger.Expenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClearFailureStillRedirects(t *testing.T) {
	ledger := newSeededLedger(t)
	srv := newTestServer(t, brokenLedger{Ledger: ledger, err: errors.New("database is locked")})

	rr := serve(srv, http.MethodPost, "/clear", url.Values{})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	all, err := ledger.Expenses(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReport(t *testing.T) {
	srv := newTestServer(t, newSeededLedger(t))

	rr := serve(srv, http.MethodGet, "/report?year=2024&month=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Expense Report for 2024-01")
	assert.Contains(t, body, "lunch")
	assert.Contains(t, body, "dinner")
	assert.NotContains(t, body, "bus")
	assert.Contains(t, body, "Total: 50.00")

	rr = serve(srv, http.MethodGet, "/report", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Expense Report for 2024-01", "defaults to the current month")

	rr = serve(srv, http.MethodGet, "/report?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses recorded.")

	for _, q := range []string{"year=2024&month=13", "year=2024&month=0", "year=abc&month=1"} {
		rr := serve(srv, http.MethodGet, "/report?"+q, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, q)
		assert.Contains(t, rr.Body.String(), `class="error"`, q)
	}
}

func TestReadyReportsStorageFailure(t *testing.T) {
	srv := newTestServer(t, brokenLedger{Ledger: services.NewLedger(memory.New()), err: errors.New("unreachable")})

	rr := serve(srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")
	assert.Contains(t, rr.Body.String(), "unreachable")
}

func TestRateLimitOnPost(t *testing.T) {
	srv := newTestServer(t, services.NewLedger(memory.New()))

	var last int
	for i := 0; i < 61; i++ {
		last = serve(srv, http.MethodPost, "/clear", url.Values{}).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	rr := serve(srv, http.MethodGet, "/healthz", nil)
	assert.Contains(t, rr.Body.String(), `"rate_limit_hits":1`)
}

func TestWriteLimitIsPerRoute(t *testing.T) {
	srv := newTestServer(t, services.NewLedger(memory.New()), WithWriteLimit(2, time.Minute))
	add := url.Values{"category": {"food"}, "amount": {"1"}}

	assert.Equal(t, http.StatusSeeOther, serve(srv, http.MethodPost, "/", add).Code)
	assert.Equal(t, http.StatusSeeOther, serve(srv, http.MethodPost, "/", add).Code)
	rr := serve(srv, http.MethodPost, "/", add)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are never limited and clears have their own budget.
	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusSeeOther, serve(srv, http.MethodPost, "/clear", url.Values{}).Code)
}

func TestSuspiciousInputIsCountedAndStoredEscaped(t *testing.T) {
	ledger := services.NewLedger(memory.New())
	srv := newTestServer(t, ledger)

	rr := serve(srv, http.MethodPost, "/", url.Values{
		"category": {"food"},
		"note":     {"<script>alert(1)</script>"},
		"amount":   {"4"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	all, err := ledger.Expenses(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	rr = serve(srv, http.MethodGet, "/show", nil)
	assert.NotContains(t, rr.Body.String(), "<script>alert(1)</script>")

	rr = serve(srv, http.MethodGet, "/healthz", nil)
	assert.Contains(t, rr.Body.String(), `"suspicious_requests":1`)
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, services.NewLedger(memory.New()))

	rr := serve(srv, http.MethodGet, "/static/chart.js", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}
