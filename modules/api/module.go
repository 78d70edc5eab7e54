package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ArogoClin/task-manager/domain/task"
	"github.com/ArogoClin/task-manager/internal/config"
	"github.com/ArogoClin/task-manager/internal/metrics"
	"github.com/ArogoClin/task-manager/modules/ratelimit"
	taskmod "github.com/ArogoClin/task-manager/modules/task"
)

// Module provides the HTTP API.
type Module struct {
	cfg       config.ServerConfig
	tasks     *taskmod.Module
	rateLimit *ratelimit.Module
	checks    map[string]mono.HealthCheckableModule
	logger    *zap.Logger
	metrics   *metrics.Metrics
	app       *fiber.App
	startedAt time.Time
}

// Compile-time interface checks.
var (
	_ mono.Module          = (*Module)(nil)
	_ mono.DependentModule = (*Module)(nil)
)

// NewModule creates a new API module serving the given task module.
func NewModule(cfg config.ServerConfig, tasks *taskmod.Module, logger *zap.Logger, m *metrics.Metrics) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{
		cfg:       cfg,
		tasks:     tasks,
		checks:    make(map[string]mono.HealthCheckableModule),
		logger:    logger,
		metrics:   m,
		startedAt: time.Now(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// SetRateLimiter enables per-IP rate limiting on /api routes.
func (m *Module) SetRateLimiter(rl *ratelimit.Module) {
	m.rateLimit = rl
}

// AddHealthCheck includes a module in the /health report.
func (m *Module) AddHealthCheck(module mono.HealthCheckableModule) {
	if named, ok := module.(mono.Module); ok {
		m.checks[named.Name()] = module
	}
}

// Dependencies declares module dependencies so they start first.
func (m *Module) Dependencies() []string {
	deps := []string{"task"}
	if m.rateLimit != nil {
		deps = append(deps, m.rateLimit.Name())
	}
	return deps
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(module string, _ mono.ServiceContainer) {
	m.logger.Debug("received dependency container", zap.String("module", module))
}

// Start builds the Fiber app and starts listening.
func (m *Module) Start(_ context.Context) error {
	if m.tasks == nil || m.tasks.Service() == nil {
		return fmt.Errorf("task service not available")
	}

	var limiter *ratelimit.Middleware
	if m.rateLimit != nil {
		limiter = m.rateLimit.Middleware()
	}

	m.app = m.buildApp(m.tasks.Service(), limiter)
	m.startedAt = time.Now()

	addr := fmt.Sprintf(":%d", m.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", zap.String("addr", addr))
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// buildApp wires middleware and routes around service.
func (m *Module) buildApp(service TaskService, limiter *ratelimit.Middleware) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Task Manager API",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
	})

	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(m.requestLogger())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     m.cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		AllowCredentials: m.cfg.FrontendURL != "*",
	}))

	h := NewHandlers(service)

	app.Get("/", h.Root)
	app.Get("/health", m.health)
	if m.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.metrics.Handler()))
	}

	api := app.Group("/api")
	if limiter != nil {
		api.Use(limiter.IPRateLimit())
	}

	// stats must be registered before /:id
	tasks := api.Group("/tasks")
	tasks.Get("/stats", h.Stats)
	tasks.Get("/", h.ListTasks)
	tasks.Post("/", h.CreateTask)
	tasks.Get("/:id", h.GetTask)
	tasks.Put("/:id", h.UpdateTask)
	tasks.Delete("/:id", h.DeleteTask)

	app.Use(h.NotFound)

	return app
}

// health reports uptime and the health of every registered module.
func (m *Module) health(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(m.startedAt).Seconds(),
	}

	if len(m.checks) > 0 {
		resp.Modules = make(map[string]ModuleHealth, len(m.checks))
		for name, module := range m.checks {
			status := module.Health(c.UserContext())
			resp.Modules[name] = ModuleHealth{
				Healthy: status.Healthy,
				Message: status.Message,
				Details: status.Details,
			}
			if !status.Healthy {
				resp.Status = "DEGRADED"
			}
		}
	}

	code := fiber.StatusOK
	if resp.Status != "OK" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(resp)
}

// errorHandler converts every handler error into the uniform error body.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	var (
		validationErr *task.ValidationError
		notFoundErr   *task.NotFoundError
		fiberErr      *fiber.Error
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  validationErr.Errors,
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Message: notFoundErr.Error(),
		})
	case errors.Is(err, errBadID):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Message: "Invalid task ID",
		})
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(ErrorResponse{
			Success: false,
			Message: fiberErr.Message,
		})
	}

	m.logger.Error("unhandled error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("request_id", requestID(c)),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Success: false,
		Message: "Internal Server Error",
	})
}

// App returns the Fiber app (for testing).
func (m *Module) App() *fiber.App {
	return m.app
}
