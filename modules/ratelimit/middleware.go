package ratelimit

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ArogoClin/task-manager/internal/metrics"
)

// ClassOf maps an HTTP method to its quota class. Anything that can change
// a task counts as a write.
func ClassOf(method string) Class {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return ClassRead
	default:
		return ClassWrite
	}
}

// Middleware applies a Limiter to incoming requests keyed by client IP.
type Middleware struct {
	limiter Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewMiddleware creates a new rate limiting middleware.
func NewMiddleware(limiter Limiter, logger *zap.Logger, m *metrics.Metrics) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{
		limiter: limiter,
		logger:  logger,
		metrics: m,
	}
}

// IPRateLimit returns middleware that charges each request to its client IP
// and method class. Limiter failures let the request through.
func (m *Middleware) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			ip = "unknown"
		}
		class := ClassOf(c.Method())

		result, err := m.limiter.Allow(c.UserContext(), class, ip)
		if err != nil {
			m.logger.Warn("rate limit check failed, allowing request",
				zap.String("ip", ip),
				zap.String("class", string(class)),
				zap.Error(err),
			)
			return c.Next()
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			m.metrics.RateLimitDenied(string(class))
			m.logger.Debug("request rate limited",
				zap.String("ip", ip),
				zap.String("class", string(class)),
				zap.Int("limit", result.Limit),
			)
			return sendRateLimitExceeded(c, result)
		}

		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, result *Result) {
	c.Set("X-RateLimit-Class", string(result.Class))
	c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// sendRateLimitExceeded answers 429 with Retry-After in whole seconds, at
// least one.
func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := max(int((result.RetryAfter+999*time.Millisecond)/time.Second), 1)

	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"success":    false,
		"message":    fmt.Sprintf("Too many %s requests, please retry after %d seconds", result.Class, retryAfter),
		"retryAfter": retryAfter,
	})
}
