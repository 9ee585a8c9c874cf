package repository

import (
	"context"
	"time"

	"github.com/smarttask/backend/domain"
)

type TaskFilter struct {
	UserID string
	Status domain.Status
	Limit  int
	Offset int
}

// StatusCounts aggregates a user's tasks per lifecycle state.
type StatusCounts struct {
	Active    int
	Completed int
}

// TaskRepository persists tasks. Every operation is scoped by the owning
// user id; a task id belonging to another user behaves like a missing row.
type TaskRepository interface {
	GetByID(ctx context.Context, userID, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// Complete transitions an active task to completed and stamps the
	// completion date. An already-completed task is not restamped: the call
	// fails with domain.ErrTaskNotFound.
	Complete(ctx context.Context, userID, id string, at time.Time) (*domain.Task, error)

	Delete(ctx context.Context, userID, id string) error
	CountByStatus(ctx context.Context, userID string) (StatusCounts, error)
}
