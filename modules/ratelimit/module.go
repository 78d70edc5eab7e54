package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ArogoClin/task-manager/internal/config"
	"github.com/ArogoClin/task-manager/internal/metrics"
)

const keyPrefix = "task-manager:ratelimit:"

// Module owns the Redis client and the rate limiting middleware.
type Module struct {
	redisCfg   config.RedisConfig
	limitCfg   config.RateLimitConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
	client     *redis.Client
	limiter    *SlidingWindowLimiter
	middleware *Middleware
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)

// NewModule creates a new rate limiting module.
func NewModule(redisCfg config.RedisConfig, limitCfg config.RateLimitConfig, logger *zap.Logger, m *metrics.Metrics) *Module {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module{
		redisCfg: redisCfg,
		limitCfg: limitCfg,
		logger:   logger,
		metrics:  m,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ratelimit"
}

// Start connects to Redis and builds the middleware. An unreachable Redis is
// logged, not fatal: the middleware lets requests through until it recovers.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:     m.redisCfg.Addr,
		Password: m.redisCfg.Password,
		DB:       m.redisCfg.DB,
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		m.logger.Warn("Redis not reachable, rate limiting will fail open",
			zap.String("redis", m.redisCfg.Addr),
			zap.Error(err),
		)
	}

	m.limiter = NewSlidingWindowLimiter(m.client, quotasFrom(m.limitCfg), keyPrefix)
	m.middleware = NewMiddleware(m.limiter, m.logger, m.metrics)

	m.logger.Info("module started",
		zap.String("redis", m.redisCfg.Addr),
		zap.Int("read_requests", m.limitCfg.Requests),
		zap.Int("write_requests", m.limitCfg.WriteRequests),
		zap.Duration("window", m.limitCfg.Window),
	)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Warn("error closing Redis connection", zap.Error(err))
		}
	}
	m.logger.Info("module stopped")
	return nil
}

// Health pings Redis.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "Redis client not initialized",
		}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("Redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr": m.redisCfg.Addr,
		},
	}
}

// quotasFrom builds the per-class quotas. Both classes share the window.
func quotasFrom(cfg config.RateLimitConfig) map[Class]Quota {
	return map[Class]Quota{
		ClassRead:  {Requests: cfg.Requests, Window: cfg.Window},
		ClassWrite: {Requests: cfg.WriteRequests, Window: cfg.Window},
	}
}

// Middleware returns the rate limiting middleware. It is nil until the module
// has started.
func (m *Module) Middleware() *Middleware {
	return m.middleware
}
