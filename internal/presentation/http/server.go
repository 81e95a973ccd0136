package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/auth"
	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/storage"
	"juvenis/app/internal/domain/volume"
	"juvenis/app/internal/platform/metrics"
)

// Options configures the HTTP server wiring.
type Options struct {
	VolumeService  volume.Service
	NewsService    news.Service
	AuthService    auth.Service
	StorageService storage.Service

	// Files serves uploaded objects under /storage/.
	Files stdhttp.Handler

	Metrics           *metrics.Metrics
	HealthChecks      []HealthCheck
	Session           SessionSettings
	SummarizerEnabled bool
	Logger            *logrus.Logger
	SentryHub         *sentry.Hub
	RateLimiter       RateLimiterSettings
	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only when a reverse proxy overwrites those headers.
	TrustProxyHeaders bool
}

// SessionSettings controls the session cookie issued by the login form.
type SessionSettings struct {
	CookieName string
	Secure     bool
}

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api               huma.API
	mux               *stdhttp.ServeMux
	volumes           volume.Service
	news              news.Service
	auth              auth.Service
	storage           storage.Service
	files             stdhttp.Handler
	metrics           *metrics.Metrics
	healthChecks      []HealthCheck
	session           SessionSettings
	summarizerEnabled bool
	logger            *logrus.Logger
	sentry            *sentry.Hub
	rateLimiter       *RateLimiter
	trustProxy        bool
	now               func() time.Time
}

const defaultCookieName = "juvenis_session"

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.VolumeService == nil {
		return nil, eris.New("volume service is required")
	}
	if opts.NewsService == nil {
		return nil, eris.New("news service is required")
	}
	if opts.AuthService == nil {
		return nil, eris.New("auth service is required")
	}
	if opts.StorageService == nil {
		return nil, eris.New("storage service is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	session := opts.Session
	session.CookieName = strings.TrimSpace(session.CookieName)
	if session.CookieName == "" {
		session.CookieName = defaultCookieName
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Juvenis Sapiens", "1.0.0")
	config.Info.Description = "Public site, editor panel and JSON API of the Juvenis Sapiens journal."

	api := humago.New(mux, config)

	srv := &Server{
		api:               api,
		mux:               mux,
		volumes:           opts.VolumeService,
		news:              opts.NewsService,
		auth:              opts.AuthService,
		storage:           opts.StorageService,
		files:             opts.Files,
		metrics:           opts.Metrics,
		healthChecks:      opts.HealthChecks,
		session:           session,
		summarizerEnabled: opts.SummarizerEnabled,
		logger:            opts.Logger,
		sentry:            opts.SentryHub,
		rateLimiter:       NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
		trustProxy:        opts.TrustProxyHeaders,
		now:               time.Now,
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.sessionMiddleware(),
		s.metricsMiddleware(),
		s.loggingMiddleware(),
		s.bodyLimitMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerStaticRoute()
	s.registerStorageFilesRoute()
	s.registerMetricsRoute()

	s.registerPublicRoutes()
	s.registerAuthRoutes()
	s.registerAdminRoutes()
	s.registerAPIRoutes()
	s.registerHealthRoute()
}

func (s *Server) registerStorageFilesRoute() {
	if s.files == nil {
		return
	}
	s.mux.Handle("GET /storage/", s.files)
	s.mux.Handle("HEAD /storage/", s.files)
}

func (s *Server) registerMetricsRoute() {
	if s.metrics == nil {
		return
	}
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	// The home page is registered as "GET /", which the mux also matches for every unknown path.
	if r.URL.Path != "/" {
		if _, pattern := s.mux.Handler(r); pattern == "GET /" {
			s.writeNotFound(w, r)
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) writeNotFound(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	resp, _ := s.renderErrorResponse(r.Context(), stdhttp.StatusNotFound, notFoundMessage)
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	if r.Method != stdhttp.MethodHead {
		_, _ = w.Write(resp.Body)
	}
}
