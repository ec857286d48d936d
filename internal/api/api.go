// Package api exposes an agent's protocol server over HTTP with fiber.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/config"
	"a2a-support-desk/internal/metrics"
	"a2a-support-desk/internal/reqid"
	"a2a-support-desk/internal/worker"
)

const requestIDLocal = "request_id"

// Server holds the API server components.
type Server struct {
	app        *fiber.App
	a2a        *a2a.Server
	registry   *a2a.Registry
	supervisor *worker.Supervisor
	config     *config.Config
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables request metrics and the /metrics route.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSupervisor reports job counters on /health.
func WithSupervisor(sup *worker.Supervisor) Option {
	return func(s *Server) { s.supervisor = sup }
}

// New creates a new API server. A nil registry gets an empty one so the
// agents routes still answer.
func New(cfg *config.Config, srv *a2a.Server, registry *a2a.Registry, opts ...Option) *Server {
	if registry == nil {
		registry = a2a.NewRegistry()
	}
	s := &Server{
		a2a:      srv,
		registry: registry,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "api"))

	s.app = fiber.New(fiber.Config{
		AppName:               srv.Card().Name,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(requestID)
	s.app.Use(s.accessLog)

	s.setupRoutes()

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Handler adapts the application to net/http, for httptest servers.
func (s *Server) Handler() http.HandlerFunc {
	return adaptor.FiberApp(s.app)
}

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Addr())
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestID takes the caller's X-Request-ID or allocates one, echoes it
// back and stores it in the user context so outbound calls carry it.
func requestID(c *fiber.Ctx) error {
	id := c.Get(reqid.Header)
	if id == "" {
		id = reqid.Generate()
	}
	c.Locals(requestIDLocal, id)
	c.Set(reqid.Header, id)
	c.SetUserContext(reqid.With(c.UserContext(), id))
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := s.app.ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	latency := time.Since(start)
	status := c.Response().StatusCode()

	path := c.Route().Path
	if path == "" || path == "/" {
		path = c.Path()
	}
	s.metrics.RecordHTTPRequest(c.Method(), path, status, latency)

	fields := []zap.Field{
		zap.String("request_id", requestIDFrom(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", latency),
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("request", fields...)
	} else {
		s.logger.Info("request", fields...)
	}
	return nil
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}
