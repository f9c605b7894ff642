package http

import (
	"context"
	"net/http"
	"sync"

	"bilancio/internal/budget"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
)

type Server struct {
	http.Server
	store    *budget.Store
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// rollover is shown once by the next budget view after a month change.
	mu       sync.Mutex
	rollover *rolloverView

	shutdownOnce sync.Once
}

type Option func(*serverOptions)

type serverOptions struct {
	rateLimit ratelimit.Config
	headers   security.HeadersConfig
}

// WithRateLimit sets how many mutating requests a client may send per minute.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(o *serverOptions) { o.rateLimit = cfg }
}

func WithHeaders(cfg security.HeadersConfig) Option {
	return func(o *serverOptions) { o.headers = cfg }
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, store *budget.Store, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	o := serverOptions{
		rateLimit: ratelimit.DefaultConfig(),
		headers:   security.DefaultHeadersConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		store:    store,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(o.rateLimit),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/budget", s.handleBudget)
	mux.HandleFunc("/api/income", s.handleAddIncome)
	mux.HandleFunc("/api/expenses", s.handleAddExpense)
	mux.HandleFunc("/api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("/api/limits", s.handleSetLimit)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})

	limited := s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	}, http.MethodPost, http.MethodDelete)

	var handler http.Handler = mux
	handler = limited(handler)
	handler = security.NewHeadersMiddleware(o.headers).Middleware(handler)
	handler = s.detector.Middleware(s.logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the budget can be read from storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Current(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	s.noteRollover(snap)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) noteRollover(snap budget.Snapshot) {
	if !snap.RolledOver {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover = &rolloverView{PreviousPeriod: snap.PreviousPeriod, Period: snap.Record.Period}
}

func (s *Server) takeRollover() *rolloverView {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rollover
	s.rollover = nil
	return r
}

// view renders snap, attaching a pending rollover notice.
func (s *Server) view(snap budget.Snapshot) budgetView {
	s.noteRollover(snap)
	v := newBudgetView(snap.Record)
	v.Rollover = s.takeRollover()
	return v
}
