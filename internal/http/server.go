package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"savings/internal/goals"
	"savings/internal/identity"
	"savings/internal/log"
	"savings/internal/middleware/ratelimit"
	"savings/internal/middleware/security"
	"savings/internal/middleware/trace"
)

// Options configures the API server.
type Options struct {
	JWTSecret          []byte
	AllowedOrigins     []string
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	goals       *goals.Service
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *goals.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		goals:       svc,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /goals", s.handleListGoals)
	mux.HandleFunc("POST /goals", s.handleCreateGoal)
	mux.HandleFunc("GET /goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PATCH /goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("POST /goals/{id}/contributions", s.handleAddFunds)
	mux.HandleFunc("POST /session/end", s.handleEndSession)

	detector := security.NewDetector()
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders:   []string{"Location", "Retry-After", trace.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	})

	// Outermost first: trace, headers, screening, CORS, rate limit, identity.
	var h http.Handler = mux
	h = identity.NewMiddleware(opts.JWTSecret).Wrap(h)
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, isProbe, nil)(h)
	h = corsHandler.Handler(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// isProbe keeps health checks out of the rate limit.
func isProbe(r *http.Request) bool {
	return r.URL.Path == "/healthz" || r.URL.Path == "/readyz"
}

// Shutdown stops accepting requests, waits for in-flight ones, then stops
// the rate limiter. Background cache refetches are drained by the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		s.rateLimiter.Stop()
	})
	return shutdownErr
}
