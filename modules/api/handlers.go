package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ArogoClin/task-manager/domain/task"
	taskmod "github.com/ArogoClin/task-manager/modules/task"
)

const apiVersion = "1.0.0"

var errBadID = errors.New("invalid task id")

// TaskService is the task behavior the HTTP handlers need.
type TaskService interface {
	List(ctx context.Context, req taskmod.ListTasksRequest) ([]taskmod.TaskResponse, error)
	Get(ctx context.Context, id uint) (taskmod.TaskResponse, error)
	Create(ctx context.Context, in taskmod.TaskInput) (taskmod.TaskResponse, error)
	Update(ctx context.Context, id uint, in taskmod.TaskInput) (taskmod.TaskResponse, error)
	Delete(ctx context.Context, id uint) (uint, error)
	Stats(ctx context.Context) (taskmod.StatsResponse, error)
}

var _ TaskService = (*taskmod.Service)(nil)

// Handlers contains HTTP handlers for the task API. Errors are returned to
// the app's error handler.
type Handlers struct {
	service TaskService
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service TaskService) *Handlers {
	return &Handlers{service: service}
}

// Root describes the API.
func (h *Handlers) Root(c *fiber.Ctx) error {
	return c.JSON(InfoResponse{
		Message: "Task Manager API",
		Version: apiVersion,
		Status:  "active",
		Endpoints: map[string]string{
			"tasks":  "/api/tasks",
			"stats":  "/api/tasks/stats",
			"health": "/health",
		},
	})
}

// ListTasks handles GET /api/tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.service.List(c.UserContext(), taskmod.ListTasksRequest{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
	})
	if err != nil {
		return err
	}

	return c.JSON(ListResponse{
		Success: true,
		Count:   len(tasks),
		Data:    tasks,
	})
}

// GetTask handles GET /api/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	t, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(DataResponse{Success: true, Data: t})
}

// CreateTask handles POST /api/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	in, err := parseInput(c)
	if err != nil {
		return err
	}

	t, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(DataResponse{
		Success: true,
		Message: "Task created successfully",
		Data:    t,
	})
}

// UpdateTask handles PUT /api/tasks/:id.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	in, err := parseInput(c)
	if err != nil {
		return err
	}

	t, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}

	return c.JSON(DataResponse{
		Success: true,
		Message: "Task updated successfully",
		Data:    t,
	})
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	deleted, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(DataResponse{
		Success: true,
		Message: "Task deleted successfully",
		Data:    DeletedTask{ID: deleted},
	})
}

// Stats handles GET /api/tasks/stats.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(DataResponse{Success: true, Data: stats})
}

// NotFound answers any route that matched nothing else.
func (h *Handlers) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Success: false,
		Message: fmt.Sprintf("Route %s %s not found", c.Method(), c.Path()),
	})
}

// parseID reads the :id path parameter as a positive base-10 integer.
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return uint(id), nil
}

// parseInput decodes a JSON body. An empty body is an empty object.
func parseInput(c *fiber.Ctx) (taskmod.TaskInput, error) {
	var in taskmod.TaskInput

	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return taskmod.TaskInput{}, &task.ValidationError{Errors: []string{"Invalid request body"}}
	}
	return in, nil
}
