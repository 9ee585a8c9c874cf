package task

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/smarttask/backend/domain"
	"github.com/smarttask/backend/repository"
	"github.com/smarttask/backend/usecase"
)

type UseCase struct {
	tasks     repository.TaskRepository
	extractor usecase.NoteExtractor
	buffer    usecase.OperationBuffer
	logger    *zap.Logger
	now       func() time.Time
}

func New(tasks repository.TaskRepository, extractor usecase.NoteExtractor, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:     tasks,
		extractor: extractor,
		buffer:    buffer,
		logger:    logger,
		now:       time.Now,
	}
}

// Stats summarizes a user's tasks for the dashboard.
type Stats struct {
	Active         int     `json:"active"`
	Completed      int     `json:"completed"`
	Total          int     `json:"total"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
}

// CreateFromNote runs note extraction and persists the resulting draft as an
// active task. Extraction failure short-circuits: nothing is written.
func (uc *UseCase) CreateFromNote(ctx context.Context, userID, note string) (*domain.Task, error) {
	draft, err := uc.extractor.Extract(ctx, note)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		UserID:      userID,
		Description: draft.Description,
		Customer:    draft.Customer,
		DueDate:     draft.DueDate,
		Priority:    draft.Priority,
		Status:      domain.StatusActive,
	}
	return uc.createTask(ctx, task)
}

// CreateTask persists an explicitly specified task, rejecting out-of-range
// priority, status or due date at the boundary.
func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if _, err := domain.ParsePriority(string(task.Priority)); err != nil {
		return nil, err
	}
	if _, err := domain.ParseDueDate(task.DueDate); err != nil {
		return nil, err
	}
	if task.Status == "" {
		task.Status = domain.StatusActive
	} else if _, err := domain.ParseStatus(string(task.Status)); err != nil {
		return nil, err
	}
	return uc.createTask(ctx, task)
}

func (uc *UseCase) createTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationCreate, task, err) {
			return task, nil
		}
		return nil, err
	}
	return created, nil
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

func (uc *UseCase) GetTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, userID, id)
}

// CompleteTask transitions an active task to completed. Completing a task
// that is already completed, missing, or owned by someone else fails with
// domain.ErrTaskNotFound.
func (uc *UseCase) CompleteTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	at := uc.now()
	completed, err := uc.tasks.Complete(ctx, userID, id, at)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		task := &domain.Task{ID: id, UserID: userID, Status: domain.StatusCompleted, CompletionDate: &at}
		if uc.shouldBuffer(ctx, usecase.OperationComplete, task, err) {
			return task, nil
		}
		return nil, err
	}
	return completed, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, userID, id string) error {
	if err := uc.tasks.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return err
		}
		task := &domain.Task{ID: id, UserID: userID}
		if uc.shouldBuffer(ctx, usecase.OperationDelete, task, err) {
			return nil
		}
		return err
	}
	return nil
}

// GetStats aggregates status counts and the overdue total for one user.
func (uc *UseCase) GetStats(ctx context.Context, userID string) (Stats, error) {
	counts, err := uc.tasks.CountByStatus(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	active, err := uc.tasks.List(ctx, repository.TaskFilter{UserID: userID, Status: domain.StatusActive})
	if err != nil {
		return Stats{}, err
	}

	now := uc.now()
	overdue := 0
	for _, t := range active {
		if domain.IsOverdue(t.DueDate, now) {
			overdue++
		}
	}

	stats := Stats{
		Active:    counts.Active,
		Completed: counts.Completed,
		Total:     counts.Active + counts.Completed,
		Overdue:   overdue,
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return stats, nil
}

func (uc *UseCase) shouldBuffer(ctx context.Context, operation string, task *domain.Task, cause error) bool {
	if uc.buffer == nil {
		return false
	}
	if err := uc.buffer.BufferTask(ctx, operation, task); err != nil {
		uc.logger.Error("failed to buffer task operation", zap.String("operation", operation), zap.Error(err))
		return false
	}
	uc.logger.Warn("task operation buffered", zap.String("operation", operation), zap.Error(cause))
	return true
}
