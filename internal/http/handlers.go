package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

type indexPage struct {
	Title           string
	Today           string
	DefaultCategory string
	Form            services.Input
	Error           string
	Expenses        []core.Expense
}

type showPage struct {
	Title       string
	HasData     bool
	Top         core.CategoryTotal
	Totals      []core.CategoryTotal
	LabelsJSON  string
	AmountsJSON string
	Expenses    []core.Expense
}

type reportPage struct {
	Title    string
	Year     int
	Month    int
	Error    string
	Expenses []core.Expense
	Total    float64
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().BodyJSON(map[string]any{
		"status":              "ok",
		"timestamp":           time.Now().Format(time.RFC3339),
		"uptime":              time.Since(s.started).Round(time.Second).String(),
		"rate_limit_hits":     atomic.LoadInt64(&s.metrics.rateLimitHits),
		"suspicious_requests": atomic.LoadInt64(&s.metrics.suspiciousRequests),
	}).Write(w)
}

// handleReady checks templates and storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.ledger.Ping(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	NewResponse().Status(httpStatus).BodyJSON(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

// handleIndex renders the add form on GET and records an expense on POST.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if r.Method == http.MethodPost {
		s.handleCreateExpense(w, r)
		return
	}
	s.renderIndex(w, r, http.StatusOK, services.Input{}, "")
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	if resp := ParseFormOrFail(r); resp != nil {
		logger.WarnContext(r.Context(), "Parse form error", log.FieldPath, r.URL.Path)
		resp.Write(w)
		return
	}

	in := ParseExpenseForm(r.PostForm)
	if field := suspiciousExpense(in); field != "" {
		s.flagSuspicious(r, "form:"+field)
	}
	e, err := s.ledger.Add(r.Context(), in)
	switch {
	case errors.Is(err, core.ErrValidation):
		logger.InfoContext(r.Context(), "Rejected expense", log.FieldError, err, log.FieldErrorType, log.ErrorTypeValidation)
		s.renderIndex(w, r, http.StatusUnprocessableEntity, in, err.Error())
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Expense append error", log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase)
		InternalServerError("Could not save the expense").Write(w)
		return
	}

	logger.DebugContext(r.Context(), "Expense created via web", log.FieldExpenseID, e.ID)
	Redirect("/show").Write(w)
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, form services.Input, message string) {
	expenses, err := s.ledger.Expenses(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "List expenses error", log.FieldError, err)
	}
	s.render(w, r, status, "index.html", indexPage{
		Title:           "Add Expense",
		Today:           core.Today(s.now()).String(),
		DefaultCategory: s.defaultCategory,
		Form:            form,
		Error:           message,
		Expenses:        expenses,
	})
}

// handleShow renders every expense with the category chart. /show and
// /dashboard are served by this handler.
func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)

	expenses, err := s.ledger.Expenses(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "List expenses error", log.FieldError, err)
		InternalServerError("Could not load expenses").Write(w)
		return
	}

	page := showPage{Title: "Expenses", Expenses: expenses}

	chart, err := s.ledger.CategoryTotalsForChart(ctx)
	switch {
	case errors.Is(err, core.ErrEmpty):
		// Rendered as the no-data placeholder.
	case err != nil:
		logger.ErrorContext(ctx, "Category totals error", log.FieldError, err)
		InternalServerError("Could not load category totals").Write(w)
		return
	default:
		top, err := s.ledger.TopCategory(ctx)
		if err != nil && !errors.Is(err, core.ErrEmpty) {
			logger.ErrorContext(ctx, "Top category error", log.FieldError, err)
			InternalServerError("Could not load category totals").Write(w)
			return
		}
		labels, _ := json.Marshal(chart.Labels)
		amounts, _ := json.Marshal(chart.Amounts)
		page.HasData = true
		page.Top = top
		page.LabelsJSON = string(labels)
		page.AmountsJSON = string(amounts)
		for i, label := range chart.Labels {
			page.Totals = append(page.Totals, core.CategoryTotal{Category: label, Total: chart.Amounts[i]})
		}
	}

	s.render(w, r, http.StatusOK, "show.html", page)
}

// handleClear deletes every expense and always redirects to /show.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := s.ledger.ClearAll(r.Context()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Clear all failed, ledger unchanged",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase)
	}
	Redirect("/show").Write(w)
}

// handleReport renders the expenses of one calendar month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	params, err := ParseMonthParams(r.URL.Query(), s.now())
	page := reportPage{Title: "Monthly Report", Year: params.Year, Month: params.Month}
	if err != nil {
		page.Error = err.Error()
		s.render(w, r, http.StatusUnprocessableEntity, "report.html", page)
		return
	}

	expenses, err := s.ledger.MonthlyReport(ctx, params.Year, params.Month)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Monthly report error",
			log.FieldError, err, log.FieldYear, params.Year, log.FieldMonth, params.Month)
		InternalServerError("Could not load the report").Write(w)
		return
	}
	page.Expenses = expenses
	amounts := make([]float64, 0, len(expenses))
	for _, e := range expenses {
		amounts = append(amounts, e.Amount)
	}
	page.Total = core.SumAmounts(amounts...)

	s.render(w, r, http.StatusOK, "report.html", page)
}

// render executes a template into a buffer so a failure never sends a partial page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed", log.FieldError, err, "template", name)
		InternalServerError("Could not render the page").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}
