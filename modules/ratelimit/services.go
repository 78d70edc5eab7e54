package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"go.uber.org/zap"
)

var (
	errNotStarted    = errors.New("ratelimit module not started")
	errClientMissing = errors.New("client is required")
)

// UsageRequest asks for a client's standing in every quota class.
type UsageRequest struct {
	Client string `json:"client"`
}

// ClassUsage is a client's standing in one quota class.
type ClassUsage struct {
	Limit        int       `json:"limit"`
	Used         int       `json:"used"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"resetAt"`
	RetryAfterMs int64     `json:"retryAfterMs,omitempty"`
}

// UsageResponse maps each class to the client's usage.
type UsageResponse struct {
	Client  string               `json:"client"`
	Classes map[Class]ClassUsage `json:"classes"`
}

// ResetRequest clears a client's recorded requests.
type ResetRequest struct {
	Client string `json:"client"`
}

// ResetResponse confirms a reset.
type ResetResponse struct {
	Client string `json:"client"`
}

// RegisterServices exposes services.ratelimit.usage and
// services.ratelimit.reset.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "usage", json.Unmarshal, json.Marshal, m.usage,
	); err != nil {
		return fmt.Errorf("failed to register usage service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "reset", json.Unmarshal, json.Marshal, m.reset,
	); err != nil {
		return fmt.Errorf("failed to register reset service: %w", err)
	}

	m.logger.Info("registered services: services.ratelimit.{usage,reset}")
	return nil
}

func (m *Module) usage(ctx context.Context, req UsageRequest, _ *mono.Msg) (UsageResponse, error) {
	if m.limiter == nil {
		return UsageResponse{}, errNotStarted
	}
	if req.Client == "" {
		return UsageResponse{}, errClientMissing
	}

	resp := UsageResponse{Client: req.Client, Classes: make(map[Class]ClassUsage, len(Classes))}
	for _, class := range Classes {
		r, err := m.limiter.Usage(ctx, class, req.Client)
		if err != nil {
			return UsageResponse{}, err
		}
		resp.Classes[class] = ClassUsage{
			Limit:        r.Limit,
			Used:         r.Used,
			Remaining:    r.Remaining,
			ResetAt:      r.ResetAt,
			RetryAfterMs: r.RetryAfter.Milliseconds(),
		}
	}
	return resp, nil
}

func (m *Module) reset(ctx context.Context, req ResetRequest, _ *mono.Msg) (ResetResponse, error) {
	if m.limiter == nil {
		return ResetResponse{}, errNotStarted
	}
	if req.Client == "" {
		return ResetResponse{}, errClientMissing
	}
	if err := m.limiter.Reset(ctx, req.Client); err != nil {
		return ResetResponse{}, err
	}

	m.logger.Info("rate limit reset", zap.String("client", req.Client))
	return ResetResponse{Client: req.Client}, nil
}
