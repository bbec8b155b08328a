package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"expensechat/internal/aggregate"
	"expensechat/internal/core"
	"expensechat/internal/log"
	"expensechat/internal/middleware/ratelimit"
	"expensechat/internal/middleware/security"
	"expensechat/internal/middleware/trace"
	"expensechat/internal/services"
)

// Ports the handlers depend on.
type (
	ChatAnswerer interface {
		Answer(ctx context.Context, owner, text string) (services.Answer, error)
	}

	ExpenseCreator interface {
		Create(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	SummaryProvider interface {
		Summary(ctx context.Context, owner string, g aggregate.Granularity) (aggregate.Summary, error)
	}

	Categorizer interface {
		Categorize(text string) core.Category
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Deps are the services the API exposes. Ready may be nil.
type Deps struct {
	Chat        ChatAnswerer
	Expenses    ExpenseCreator
	Summaries   SummaryProvider
	Categorizer Categorizer
	Ready       Pinger
	Logger      *log.Logger

	// RateLimitPerMinute caps POST requests per client; 0 uses the default.
	RateLimitPerMinute int
	// TrustedProxies extend the private ranges whose forwarding headers
	// identify the client.
	TrustedProxies []string
}

type Server struct {
	http.Server

	deps        Deps
	logger      *log.Logger
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	started      time.Time
	expenses     atomic.Int64
	shutdownOnce sync.Once
}

// NewServer builds the JSON API on addr.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:        deps,
		logger:      logger,
		detector:    security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		started:     time.Now(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/categorize", s.handleCategorize)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)

	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// outermost first: trace, detection, headers, rate limit
	var h http.Handler = mux
	h = limit(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops the listener and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.rateLimiter.Stop)
	return s.Server.Shutdown(ctx)
}
