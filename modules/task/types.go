package task

import (
	"time"

	"github.com/ArogoClin/task-manager/domain/task"
)

// TaskInput is the body of a create or update request. Every field records
// whether its key was present and whether it was an explicit null.
type TaskInput struct {
	Title       task.Optional[string]   `json:"title,omitzero"`
	Description task.Optional[string]   `json:"description,omitzero"`
	Status      task.Optional[string]   `json:"status,omitzero"`
	Priority    task.Optional[string]   `json:"priority,omitzero"`
	Tags        task.Optional[[]string] `json:"tags,omitzero"`
	DueDate     task.Optional[string]   `json:"dueDate,omitzero"`
}

// ListTasksRequest carries the optional query filters.
type ListTasksRequest struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Search   string `json:"search,omitempty"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	ID uint `json:"id"`
}

// UpdateTaskRequest is the request for updating a task.
type UpdateTaskRequest struct {
	ID uint `json:"id"`
	TaskInput
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	ID uint `json:"id"`
}

// StatsRequest is the request for task statistics.
type StatsRequest struct{}

// TaskResponse represents a task in responses, enriched with derived fields.
type TaskResponse struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Status      task.Status   `json:"status"`
	Priority    task.Priority `json:"priority"`
	Tags        task.Tags     `json:"tags"`
	DueDate     *time.Time    `json:"dueDate"`
	CreateDate  time.Time     `json:"createDate"`
	IsOverdue   bool          `json:"isOverdue"`
}

// ListTasksResponse is the response containing a list of tasks.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// DeleteTaskResponse confirms a deletion.
type DeleteTaskResponse struct {
	ID uint `json:"id"`
}

// StatusCounts holds the number of tasks per status.
type StatusCounts struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
}

// PriorityCounts holds the number of tasks per priority. Every key is always
// present.
type PriorityCounts struct {
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
	Urgent int64 `json:"urgent"`
}

// StatsResponse summarizes the whole store.
type StatsResponse struct {
	Total      int64          `json:"total"`
	ByStatus   StatusCounts   `json:"byStatus"`
	Overdue    int64          `json:"overdue"`
	ByPriority PriorityCounts `json:"byPriority"`
}

// toTaskResponse converts a Task entity to a TaskResponse as of now.
func toTaskResponse(t *task.Task, now time.Time) TaskResponse {
	tags := t.Tags
	if tags == nil {
		tags = task.Tags{}
	}

	var dueDate *time.Time
	if t.DueDate != nil {
		utc := t.DueDate.UTC()
		dueDate = &utc
	}

	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Tags:        tags,
		DueDate:     dueDate,
		CreateDate:  t.CreateDate.UTC(),
		IsOverdue:   t.IsOverdue(now),
	}
}
