package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

var errNotStarted = errors.New("task module not started")

// RegisterServices registers request-reply services in the service container.
// The framework prefixes service names with "services.<module>." so "create"
// becomes "services.task.create" in the NATS subject.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "create", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "stats", json.Unmarshal, json.Marshal, m.taskStats,
	); err != nil {
		return fmt.Errorf("failed to register stats service: %w", err)
	}

	m.logger.Info("registered services: services.task.{list,get,create,update,delete,stats}")
	return nil
}

// listTasks handles the task.list service request.
func (m *Module) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	if m.service == nil {
		return ListTasksResponse{}, errNotStarted
	}

	tasks, err := m.service.List(ctx, req)
	if err != nil {
		return ListTasksResponse{}, err
	}
	return ListTasksResponse{Tasks: tasks, Count: len(tasks)}, nil
}

// getTask handles the task.get service request.
func (m *Module) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	if m.service == nil {
		return TaskResponse{}, errNotStarted
	}
	if req.ID == 0 {
		return TaskResponse{}, fmt.Errorf("id is required")
	}
	return m.service.Get(ctx, req.ID)
}

// createTask handles the task.create service request.
func (m *Module) createTask(ctx context.Context, req TaskInput, _ *mono.Msg) (TaskResponse, error) {
	if m.service == nil {
		return TaskResponse{}, errNotStarted
	}
	return m.service.Create(ctx, req)
}

// updateTask handles the task.update service request.
func (m *Module) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	if m.service == nil {
		return TaskResponse{}, errNotStarted
	}
	if req.ID == 0 {
		return TaskResponse{}, fmt.Errorf("id is required")
	}
	return m.service.Update(ctx, req.ID, req.TaskInput)
}

// deleteTask handles the task.delete service request.
func (m *Module) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if m.service == nil {
		return DeleteTaskResponse{}, errNotStarted
	}
	if req.ID == 0 {
		return DeleteTaskResponse{}, fmt.Errorf("id is required")
	}

	id, err := m.service.Delete(ctx, req.ID)
	if err != nil {
		return DeleteTaskResponse{}, err
	}
	return DeleteTaskResponse{ID: id}, nil
}

// taskStats handles the task.stats service request.
func (m *Module) taskStats(ctx context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	if m.service == nil {
		return StatsResponse{}, errNotStarted
	}
	return m.service.Stats(ctx)
}
