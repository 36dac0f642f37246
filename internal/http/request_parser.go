package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters. Missing
// values default to the month of now; malformed ones are a *core.ValidationError.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, &core.ValidationError{Field: "year", Value: v, Err: core.ErrInvalidYear}
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, &core.ValidationError{Field: "month", Value: v, Err: core.ErrInvalidMonth}
		}
		params.Month = m
	}

	return params, core.ValidateMonth(params.Year, params.Month)
}

// ParseExpenseForm reads the add-expense form fields.
func ParseExpenseForm(form url.Values) services.Input {
	return services.Input{
		Date:     sanitizeInput(form.Get("date")),
		Category: sanitizeInput(form.Get("category")),
		Note:     sanitizeInput(form.Get("note")),
		Amount:   sanitizeInput(form.Get("amount")),
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *ResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *ResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *ResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Malformed form data")
	}
	return nil
}
