package http

import (
	"context"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	appweb "expensetracker/web"
)

const requestIDHeader = "X-Request-ID"

// Ledger is the part of services.Ledger the web front end uses.
type Ledger interface {
	Add(ctx context.Context, in services.Input) (core.Expense, error)
	Expenses(ctx context.Context) ([]core.Expense, error)
	SummaryByCategory(ctx context.Context) ([]core.CategoryTotal, error)
	TopCategory(ctx context.Context) (core.CategoryTotal, error)
	MonthlyReport(ctx context.Context, year, month int) ([]core.Expense, error)
	ClearAll(ctx context.Context) error
	CategoryTotalsForChart(ctx context.Context) (core.ChartData, error)
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	templates       *template.Template
	ledger          Ledger
	logger          *log.Logger
	limiter         *writeLimiter
	metrics         *securityMetrics
	defaultCategory string
	started         time.Time
	now             func() time.Time

	shutdownOnce sync.Once
}

type serverOptions struct {
	writeLimit  int
	writeWindow time.Duration
}

type ServerOption func(*serverOptions)

// WithWriteLimit allows limit adds, and separately limit clears, per client in
// each window.
func WithWriteLimit(limit int, window time.Duration) ServerOption {
	return func(o *serverOptions) {
		if limit > 0 && window > 0 {
			o.writeLimit = limit
			o.writeWindow = window
		}
	}
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, logger *log.Logger, defaultCategory string, opts ...ServerOption) *Server {
	o := serverOptions{writeLimit: 60, writeWindow: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	if defaultCategory == "" {
		defaultCategory = core.DefaultCategory
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		ledger:          ledger,
		logger:          logger.WithComponent(log.ComponentHTTP),
		limiter:         newWriteLimiter(o.writeLimit, o.writeWindow),
		metrics:         &securityMetrics{},
		defaultCategory: defaultCategory,
		started:         time.Now(),
		now:             time.Now,
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(template.FuncMap{
		"amount": core.FormatAmount,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.WithComponent(log.ComponentTemplate).Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.limitWrites(s.handleIndex)))
	mux.HandleFunc("/show", s.withSecurityHeaders(s.handleShow))
	mux.HandleFunc("/dashboard", s.withSecurityHeaders(s.handleShow))
	mux.HandleFunc("/clear", s.withSecurityHeaders(s.limitWrites(s.handleClear)))
	mux.HandleFunc("/report", s.withSecurityHeaders(s.handleReport))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	s.Handler = log.Middleware(s.logger)(
		withRequestID(
			log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get(requestIDHeader) })(
				log.AccessMiddleware(extractClientIP)(mux))))

	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestID keeps a caller-supplied request ID or assigns a new one and
// echoes it in the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = generateRequestID()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// withSecurityHeaders adds security headers and counts suspicious requests.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reason := suspiciousRequest(r); reason != "" {
			s.flagSuspicious(r, reason)
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

// limitWrites rate limits POSTs, the only requests that change the ledger.
func (s *Server) limitWrites(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next(w, r)
			return
		}

		clientIP := extractClientIP(r)
		ok, retryAfter := s.limiter.allow(clientIP, r.URL.Path)
		if !ok {
			atomic.AddInt64(&s.metrics.rateLimitHits, 1)
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Write rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path,
				"retry_after", retryAfter.String())
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			ErrorResponse(http.StatusTooManyRequests, "Too many changes to the ledger. Please try again later.").Write(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) flagSuspicious(r *http.Request, reason string) {
	atomic.AddInt64(&s.metrics.suspiciousRequests, 1)
	log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
		log.FieldClientIP, extractClientIP(r),
		log.FieldPath, r.URL.Path,
		"reason", reason)
}
