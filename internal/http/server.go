package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"pennywise/internal/adapters"
	"pennywise/internal/calculator"
	"pennywise/internal/log"
	"pennywise/internal/middleware/ratelimit"
	"pennywise/internal/middleware/security"
	"pennywise/internal/middleware/trace"
	"pennywise/internal/observability"
	"pennywise/internal/services"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readyTimeout      = 3 * time.Second
)

// Syncer runs recurring evaluation on demand. services.Scheduler satisfies it.
type Syncer interface {
	TriggerNow(ctx context.Context) (int, error)
	LastRun() services.RunStatus
}

// Options configure NewServer. Only App is required.
type Options struct {
	Addr       string
	App        *adapters.App
	Scheduler  Syncer
	Calculator calculator.Engine
	Limiter    *ratelimit.Limiter
	Detector   *security.Detector
	Logger     *log.Logger
}

type Server struct {
	http.Server
	app       *adapters.App
	scheduler Syncer
	engine    calculator.Engine
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger
	calc      *calculatorMetrics
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.App == nil {
		return nil, fmt.Errorf("http server: app is required")
	}
	calc, err := newCalculatorMetrics()
	if err != nil {
		return nil, err
	}

	s := &Server{
		app:       opts.App,
		scheduler: opts.Scheduler,
		engine:    opts.Calculator,
		limiter:   opts.Limiter,
		detector:  opts.Detector,
		logger:    opts.Logger,
		calc:      calc,
		started:   time.Now(),
	}
	if s.engine.Limits().MaxDigits == 0 {
		s.engine = calculator.New()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if s.detector == nil {
		s.detector = security.NewDetector()
	}
	if s.logger == nil {
		s.logger = log.FromContext(context.Background())
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(trace.RequestID)
	r.Use(observability.TracingMiddleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.FromRequest))
	r.Use(log.AccessLog(s.detector.ExtractClientIP))
	r.Use(trace.Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", observability.PrometheusHandler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))

		r.Post("/calculator/keys", s.handleCalculatorKeys)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}", s.handleGetCategory)
			r.Put("/{id}/budget", s.handleSetBudget)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/{id}", s.handleGetExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", s.handleListRecurring)
			r.Post("/", s.handleCreateRecurring)
			r.Get("/{id}", s.handleGetRecurring)
			r.Put("/{id}", s.handleUpdateRecurring)
			r.Delete("/{id}", s.handleDeleteRecurring)
			r.Put("/{id}/active", s.handleSetRecurringActive)
		})

		r.Get("/overview", s.handleOverview)
		r.Get("/sync", s.handleSyncStatus)
		r.Post("/sync", s.handleSync)
	})

	return r
}

// Shutdown drains in-flight requests. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) now() time.Time {
	return time.Now().In(s.app.Budget.Location())
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready only when the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.app.Store.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.scheduler != nil {
		if last := s.scheduler.LastRun(); last.Err != nil {
			checks["scheduler"] = "last run failed: " + last.Err.Error()
		} else {
			checks["scheduler"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
