package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// orderByRank sorts urgent > high > medium > low, then earliest due date with
// undated tasks last, then newest first. id breaks exact ties.
const orderByRank = "CASE priority" +
	" WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC," +
	" CASE WHEN due_date IS NULL THEN 1 ELSE 0 END ASC," +
	" due_date ASC," +
	" create_date DESC," +
	" id DESC"

// Filter narrows a task query. Empty fields impose no constraint.
type Filter struct {
	Status   Status
	Priority Priority
	Search   string
}

// PriorityCount is one row of a per-priority count.
type PriorityCount struct {
	Priority Priority
	Count    int64
}

// Repository provides database operations for tasks.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate runs database migrations for the tasks table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Task{})
}

// Create inserts a new task and fills in its generated id.
func (r *Repository) Create(ctx context.Context, task *Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by id.
func (r *Repository) GetByID(ctx context.Context, id uint) (*Task, error) {
	var task Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// List returns every task matching the filter in rank order.
//
// SQLite's LOWER only folds ASCII, so on SQLite the search term is matched
// in Go after the status and priority filters have run in SQL.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Task, error) {
	query := r.db.WithContext(ctx).Model(&Task{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}

	searchInSQL := filter.Search != "" && r.db.Dialector.Name() != "sqlite"
	if searchInSQL {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		query = query.Where(
			"(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')",
			pattern, pattern,
		)
	}

	tasks := make([]Task, 0)
	if err := query.Order(orderByRank).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if filter.Search == "" || searchInSQL {
		return tasks, nil
	}

	term := strings.ToLower(filter.Search)
	matched := tasks[:0]
	for _, t := range tasks {
		if t.Matches(term) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// Update writes the given columns to the task with the given id. Keys are
// column names; nil values store NULL.
func (r *Repository) Update(ctx context.Context, id uint, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&Task{}).Where("id = ?", id).Updates(columns).Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete hard-deletes a task by id.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&Task{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// Count returns the number of tasks, optionally restricted to one status.
func (r *Repository) Count(ctx context.Context, status Status) (int64, error) {
	query := r.db.WithContext(ctx).Model(&Task{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return total, nil
}

// CountOverdue counts tasks due strictly before now that are not completed.
func (r *Repository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&Task{}).
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", now, StatusCompleted).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	return total, nil
}

// CountByPriority groups tasks by priority. Priorities without tasks are absent.
func (r *Repository) CountByPriority(ctx context.Context) ([]PriorityCount, error) {
	var rows []PriorityCount
	err := r.db.WithContext(ctx).Model(&Task{}).
		Select("priority, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	return rows, nil
}

// Ping checks the underlying connection.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
