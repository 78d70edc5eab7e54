package api

import (
	"time"

	taskmod "github.com/ArogoClin/task-manager/modules/task"
)

// ListResponse wraps a list of tasks.
type ListResponse struct {
	Success bool                   `json:"success"`
	Count   int                    `json:"count"`
	Data    []taskmod.TaskResponse `json:"data"`
}

// DataResponse wraps a single payload, with an optional confirmation message.
type DataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// DeletedTask confirms which task was removed.
type DeletedTask struct {
	ID uint `json:"id"`
}

// InfoResponse describes the API at the root path.
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// ModuleHealth is the health of one module.
type ModuleHealth struct {
	Healthy bool           `json:"healthy"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthResponse reports process and module health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    float64                 `json:"uptime"` // seconds
	Modules   map[string]ModuleHealth `json:"modules,omitempty"`
}
