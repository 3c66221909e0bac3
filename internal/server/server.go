// Package server exposes the forge HTTP API: streaming generation,
// background jobs, auto-fix, updates and compilation.
package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/darkmc/plugin-forge/internal/config"
	"github.com/darkmc/plugin-forge/internal/jobs"
	"github.com/darkmc/plugin-forge/internal/llm"
	"github.com/darkmc/plugin-forge/internal/metrics"
	"github.com/darkmc/plugin-forge/internal/requestid"
	"github.com/darkmc/plugin-forge/internal/store"
)

// ProblemDetail is the error body for unexpected failures.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Server is the forge API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	cfg      *config.Config
}

// New creates and configures the API server.
func New(cfg *config.Config, st *store.Store, client llm.Client, engine *jobs.Engine, catalog llm.Catalog, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	handlers := NewHandlers(cfg, st, client, engine, catalog, m, logger)

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "server").Logger(),
		cfg:      cfg,
	}

	s.setupMiddleware(m)
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware(m *metrics.Metrics) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if s.cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	s.app.Use(NewSessionMiddleware(s.cfg.SessionSecret, s.logger))

	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/metrics" {
			return c.Next()
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("request_id", localString(c, "request_id")).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.handlers.Health)
	s.app.Get("/metrics", metricsHandler(s.handlers.metrics))

	api := s.app.Group("/api")
	api.Get("/models", s.handlers.ListModels)
	api.Post("/generate", s.handlers.Generate)
	api.Post("/generation-jobs", s.handlers.CreateJob)
	api.Post("/generate/background", s.handlers.StartBackground)
	api.Post("/generation-status", s.handlers.GenerationStatus)
	api.Post("/auto-fix", s.handlers.AutoFix)
	api.Post("/update", s.handlers.Update)
	api.Post("/compile", s.handlers.Compile)
	api.Get("/projects", s.handlers.ListProjects)
	api.Get("/community", s.handlers.Community)
}

func metricsHandler(m *metrics.Metrics) fiber.Handler {
	if m == nil {
		return func(c *fiber.Ctx) error {
			return c.SendString("# no metrics collector configured\n")
		}
	}
	h := fasthttpadaptor.NewFastHTTPHandler(m.Handler())
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

func localString(c *fiber.Ctx, key string) string {
	if v, ok := c.Locals(key).(string); ok {
		return v
	}
	return ""
}
