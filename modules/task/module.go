package task

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ArogoClin/task-manager/domain/task"
	"github.com/ArogoClin/task-manager/internal/config"
	"github.com/ArogoClin/task-manager/internal/metrics"
)

// Module owns the task store connection and exposes the task service.
type Module struct {
	cfg     config.DatabaseConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	db      *gorm.DB
	repo    *task.Repository
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new task module.
func NewModule(cfg config.DatabaseConfig, logger *zap.Logger, m *metrics.Metrics) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "task"
}

// Start opens the database, runs migrations and creates the service.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("connecting to database", zap.String("driver", m.cfg.Driver))

	db, err := openDatabase(m.cfg, m.logger)
	if err != nil {
		return err
	}
	m.db = db
	m.repo = task.NewRepository(db)

	if err := m.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.service = NewService(m.repo, m.logger, m.metrics)

	m.logger.Info("module started")
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	m.logger.Info("closing database connection")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("database connection closed")
	return nil
}

// Health pings the database.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.cfg.Driver,
		},
	}
}

// Service returns the task service. It is nil until the module has started.
func (m *Module) Service() *Service {
	return m.service
}
