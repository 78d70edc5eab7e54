package main

import (
	"context"
	"fmt"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"go.uber.org/zap"

	"github.com/ArogoClin/task-manager/internal/config"
	"github.com/ArogoClin/task-manager/internal/logging"
	"github.com/ArogoClin/task-manager/internal/metrics"
	apimod "github.com/ArogoClin/task-manager/modules/api"
	ratelimitmod "github.com/ArogoClin/task-manager/modules/ratelimit"
	taskmod "github.com/ArogoClin/task-manager/modules/task"
)

func main() {
	// CONFIG_FILE is optional; environment variables override its values
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("=== Task Manager API ===",
		zap.Int("port", cfg.Server.Port),
		zap.String("frontend_url", cfg.Server.FrontendURL),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	m := metrics.New()

	// Create modules
	taskModule := taskmod.NewModule(cfg.Database, logger.Named("task"), m)
	apiModule := apimod.NewModule(cfg.Server, taskModule, logger.Named("api"), m)
	apiModule.AddHealthCheck(taskModule)

	var rateLimitModule *ratelimitmod.Module
	if cfg.RateLimit.Enabled {
		rateLimitModule = ratelimitmod.NewModule(cfg.Redis, cfg.RateLimit, logger.Named("ratelimit"), m)
		apiModule.SetRateLimiter(rateLimitModule)
		apiModule.AddHealthCheck(rateLimitModule)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
	)
	if err != nil {
		logger.Fatal("failed to create mono application", zap.Error(err))
	}

	// Register modules; dependencies start before the API
	if err := app.Register(taskModule); err != nil {
		logger.Fatal("failed to register task module", zap.Error(err))
	}
	if rateLimitModule != nil {
		if err := app.Register(rateLimitModule); err != nil {
			logger.Fatal("failed to register rate limit module", zap.Error(err))
		}
	}
	if err := app.Register(apiModule); err != nil {
		logger.Fatal("failed to register api module", zap.Error(err))
	}

	if err := app.Start(context.Background()); err != nil {
		logger.Fatal("failed to start app", zap.Error(err))
	}

	logger.Info("=== Application Started ===",
		zap.String("url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)),
		zap.Strings("endpoints", []string{
			"GET    /                  - API info",
			"GET    /health            - Health check",
			"GET    /metrics           - Prometheus metrics",
			"GET    /api/tasks         - List tasks (status, priority, search)",
			"GET    /api/tasks/stats   - Task statistics",
			"GET    /api/tasks/:id     - Get task",
			"POST   /api/tasks         - Create task",
			"PUT    /api/tasks/:id     - Update task",
			"DELETE /api/tasks/:id     - Delete task",
		}),
	)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("application exited", zap.Int("exit_code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)
}
