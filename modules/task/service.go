package task

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ArogoClin/task-manager/domain/task"
	"github.com/ArogoClin/task-manager/internal/metrics"
)

// Service implements task queries, single-task operations and statistics on
// top of the repository.
type Service struct {
	repo    *task.Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a new task service. logger and m may be nil.
func NewService(repo *task.Repository, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for createDate and overdue checks.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns the tasks matching every supplied filter, highest priority
// and earliest deadline first.
func (s *Service) List(ctx context.Context, req ListTasksRequest) (_ []TaskResponse, err error) {
	defer func() { s.metrics.ObserveTaskOperation("list", err) }()

	tasks, err := s.repo.List(ctx, task.Filter{
		Status:   task.Status(req.Status),
		Priority: task.Priority(req.Priority),
		Search:   req.Search,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	responses := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, toTaskResponse(&tasks[i], now))
	}
	return responses, nil
}

// Get returns one task by id.
func (s *Service) Get(ctx context.Context, id uint) (_ TaskResponse, err error) {
	defer func() { s.metrics.ObserveTaskOperation("get", err) }()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t, s.now()), nil
}

// Create validates and stores a new task.
func (s *Service) Create(ctx context.Context, in TaskInput) (_ TaskResponse, err error) {
	defer func() { s.metrics.ObserveTaskOperation("create", err) }()

	if errs := Validate(in, ModeCreate); len(errs) > 0 {
		return TaskResponse{}, &task.ValidationError{Errors: errs}
	}

	now := s.now()
	t := &task.Task{
		Title:      normalizeText(in.Title.Value),
		Status:     task.StatusPending,
		Priority:   task.PriorityMedium,
		Tags:       normalizeTags(in.Tags),
		CreateDate: now.UTC(),
	}
	if in.Description.Present() {
		t.Description = normalizeDescription(in.Description.Value)
	}
	if in.Status.Present() && in.Status.Value != "" {
		t.Status = task.Status(in.Status.Value)
	}
	if in.Priority.Present() && in.Priority.Value != "" {
		t.Priority = task.Priority(in.Priority.Value)
	}
	if in.DueDate.Present() && in.DueDate.Value != "" {
		due, err := parseDueDate(in.DueDate.Value)
		if err != nil {
			return TaskResponse{}, &task.ValidationError{Errors: []string{msgInvalidDueDate}}
		}
		t.DueDate = &due
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return TaskResponse{}, err
	}

	s.logger.Info("task created", zap.Uint("id", t.ID), zap.String("priority", string(t.Priority)))
	return toTaskResponse(t, now), nil
}

// Update applies a partial update. Keys absent from in are left unchanged;
// explicit nulls clear optional fields.
func (s *Service) Update(ctx context.Context, id uint, in TaskInput) (_ TaskResponse, err error) {
	defer func() { s.metrics.ObserveTaskOperation("update", err) }()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return TaskResponse{}, err
	}

	if errs := Validate(in, ModeUpdate); len(errs) > 0 {
		return TaskResponse{}, &task.ValidationError{Errors: errs}
	}

	columns, err := updateColumns(in)
	if err != nil {
		return TaskResponse{}, err
	}
	if err := s.repo.Update(ctx, id, columns); err != nil {
		return TaskResponse{}, err
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return TaskResponse{}, err
	}

	s.logger.Info("task updated", zap.Uint("id", id), zap.Int("fields", len(columns)))
	return toTaskResponse(updated, s.now()), nil
}

// Delete removes a task and returns its id.
func (s *Service) Delete(ctx context.Context, id uint) (_ uint, err error) {
	defer func() { s.metrics.ObserveTaskOperation("delete", err) }()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return 0, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return 0, err
	}

	s.logger.Info("task deleted", zap.Uint("id", id))
	return id, nil
}

// Stats counts tasks over the whole store. The counts run concurrently and
// are not taken from a single snapshot.
func (s *Service) Stats(ctx context.Context) (_ StatsResponse, err error) {
	defer func() { s.metrics.ObserveTaskOperation("stats", err) }()

	var (
		stats      StatsResponse
		byPriority []task.PriorityCount
		now        = s.now()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Total, err = s.repo.Count(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		stats.ByStatus.Pending, err = s.repo.Count(gctx, task.StatusPending)
		return err
	})
	g.Go(func() (err error) {
		stats.ByStatus.InProgress, err = s.repo.Count(gctx, task.StatusInProgress)
		return err
	})
	g.Go(func() (err error) {
		stats.ByStatus.Completed, err = s.repo.Count(gctx, task.StatusCompleted)
		return err
	})
	g.Go(func() (err error) {
		stats.Overdue, err = s.repo.CountOverdue(gctx, now.UTC())
		return err
	})
	g.Go(func() (err error) {
		byPriority, err = s.repo.CountByPriority(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return StatsResponse{}, err
	}

	for _, row := range byPriority {
		switch row.Priority {
		case task.PriorityLow:
			stats.ByPriority.Low = row.Count
		case task.PriorityMedium:
			stats.ByPriority.Medium = row.Count
		case task.PriorityHigh:
			stats.ByPriority.High = row.Count
		case task.PriorityUrgent:
			stats.ByPriority.Urgent = row.Count
		}
	}
	return stats, nil
}

// updateColumns maps the present keys of a validated input to column values.
func updateColumns(in TaskInput) (map[string]any, error) {
	columns := make(map[string]any)

	if in.Title.Present() {
		columns["title"] = normalizeText(in.Title.Value)
	}
	if in.Description.Set {
		if in.Description.Null {
			columns["description"] = nil
		} else if d := normalizeDescription(in.Description.Value); d == nil {
			columns["description"] = nil
		} else {
			columns["description"] = *d
		}
	}
	if in.Status.Present() {
		columns["status"] = task.Status(in.Status.Value)
	}
	if in.Priority.Present() {
		columns["priority"] = task.Priority(in.Priority.Value)
	}
	if in.Tags.Set {
		columns["tags"] = normalizeTags(in.Tags)
	}
	if in.DueDate.Set {
		if !in.DueDate.Present() || in.DueDate.Value == "" {
			columns["due_date"] = nil
		} else {
			due, err := parseDueDate(in.DueDate.Value)
			if err != nil {
				return nil, &task.ValidationError{Errors: []string{msgInvalidDueDate}}
			}
			columns["due_date"] = due
		}
	}

	return columns, nil
}

// normalizeDescription trims d and maps an empty result to nil.
func normalizeDescription(d string) *string {
	d = normalizeText(d)
	if d == "" {
		return nil
	}
	return &d
}

// normalizeTags always yields a non-nil list.
func normalizeTags(tags task.Optional[[]string]) task.Tags {
	if !tags.Present() || tags.Value == nil {
		return task.Tags{}
	}
	return task.Tags(tags.Value)
}
