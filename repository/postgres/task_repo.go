package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smarttask/backend/domain"
	"github.com/smarttask/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	const query = `
	SELECT id, user_id, task, customer, due_date, priority, status, completion_date, created_at
	FROM tasks
	WHERE id = $1 AND user_id = $2
	`
	return scanTask(r.pool.QueryRow(ctx, query, id, userID))
}

// List orders by the calendar value of due_date, not its textual form.
// The DD-MM-YYYY column would otherwise sort day-of-month first.
func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT id, user_id, task, customer, due_date, priority, status, completion_date, created_at
	FROM tasks
	WHERE user_id = $1
	  AND ($2 = '' OR status = $2)
	ORDER BY to_date(due_date, 'DD-MM-YYYY'), created_at
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.UserID, string(filter.Status), clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "list tasks", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.UserID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = domain.StatusActive
	}

	const query = `
	INSERT INTO tasks (id, user_id, task, customer, due_date, priority, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.UserID,
		task.Description,
		task.Customer,
		task.DueDate,
		string(task.Priority),
		string(task.Status),
	).Scan(&task.CreatedAt); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "insert task", err)
	}

	return task, nil
}

// Complete only touches rows still in the active state, so the completion
// date is written exactly once per task.
func (r *taskRepository) Complete(ctx context.Context, userID, id string, at time.Time) (*domain.Task, error) {
	const query = `
	UPDATE tasks
	SET status = 'completed',
		completion_date = $3
	WHERE id = $1 AND user_id = $2 AND status = 'active'
	RETURNING id, user_id, task, customer, due_date, priority, status, completion_date, created_at
	`
	return scanTask(r.pool.QueryRow(ctx, query, id, userID, at))
}

func (r *taskRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "delete task", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) CountByStatus(ctx context.Context, userID string) (repository.StatusCounts, error) {
	const query = `
	SELECT
		COUNT(*) FILTER (WHERE status = 'active'),
		COUNT(*) FILTER (WHERE status = 'completed')
	FROM tasks
	WHERE user_id = $1
	`
	var counts repository.StatusCounts
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&counts.Active, &counts.Completed); err != nil {
		return repository.StatusCounts{}, domain.WrapError(domain.ErrCodeInternal, "count tasks", err)
	}
	return counts, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var completion *time.Time

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Description,
		&task.Customer,
		&task.DueDate,
		&task.Priority,
		&task.Status,
		&completion,
		&task.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "scan task", err)
	}

	task.CompletionDate = completion
	return &task, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
