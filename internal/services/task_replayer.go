package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/smarttask/backend/domain"
	"github.com/smarttask/backend/internal/infrastructure/buffer"
	"github.com/smarttask/backend/repository"
	"github.com/smarttask/backend/usecase"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ReplayConfig controls how frequently the buffer is drained.
type ReplayConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// TaskReplayer drains buffered task mutations back into the task store once
// Postgres is reachable again. Items are keyed by task priority, so High
// priority work replays first.
type TaskReplayer struct {
	store   *buffer.Store
	monitor ConnectionHealth
	tasks   repository.TaskRepository
	logger  *zap.Logger
	cfg     ReplayConfig
	cron    *cron.Cron
}

func NewTaskReplayer(store *buffer.Store, monitor ConnectionHealth, tasks repository.TaskRepository, logger *zap.Logger, cfg ReplayConfig) *TaskReplayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	tr := &TaskReplayer{
		store:   store,
		monitor: monitor,
		tasks:   tasks,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = tr.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := tr.Drain(ctx); err != nil {
			tr.logger.Error("buffer drain failed", zap.Error(err))
		}
	})

	return tr
}

// Start launches the cron scheduler.
func (tr *TaskReplayer) Start() {
	if tr == nil || tr.cron == nil {
		return
	}
	tr.cron.Start()
	tr.logger.Info("task replayer started")
}

// Stop gracefully stops the scheduler.
func (tr *TaskReplayer) Stop(ctx context.Context) {
	if tr == nil || tr.cron == nil {
		return
	}
	stopCtx := tr.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	tr.logger.Info("task replayer stopped")
}

// Drain replays buffered items synchronously, dropping any that exhaust
// their retry budget.
func (tr *TaskReplayer) Drain(ctx context.Context) error {
	if tr == nil || tr.store == nil {
		return nil
	}
	if tr.monitor != nil && !tr.monitor.IsOnline() {
		tr.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := tr.store.GetBatch(tr.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := tr.replay(ctx, item); err != nil {
			tr.logger.Error("failed to replay buffered mutation",
				zap.String("item_id", item.ID),
				zap.String("operation", item.Operation),
				zap.Error(err))

			item.Retries++
			if item.Retries >= tr.cfg.MaxRetries {
				tr.logger.Warn("dropping buffered mutation (max retries reached)", zap.String("item_id", item.ID))
				_ = tr.store.Remove(item)
				continue
			}

			if err := tr.store.Remove(item); err != nil {
				tr.logger.Warn("failed to remove buffered mutation", zap.Error(err))
			}
			if err := tr.store.Requeue(item); err != nil {
				tr.logger.Error("failed to requeue buffered mutation", zap.Error(err))
			}
			continue
		}

		if err := tr.store.Remove(item); err != nil {
			tr.logger.Warn("failed to purge replayed mutation", zap.Error(err))
		}
	}
	return nil
}

// Enqueue attempts the mutation immediately and falls back to persisting it.
func (tr *TaskReplayer) Enqueue(ctx context.Context, item buffer.Item) error {
	if tr == nil || tr.store == nil {
		return fmt.Errorf("task replayer not configured")
	}

	if tr.monitor == nil || tr.monitor.IsOnline() {
		if err := tr.replay(ctx, item); err == nil {
			return nil
		} else {
			tr.logger.Warn("immediate replay failed, buffering", zap.Error(err))
		}
	}
	return tr.store.Enqueue(item)
}

// Size returns the number of buffered items.
func (tr *TaskReplayer) Size() int {
	if tr == nil || tr.store == nil {
		return 0
	}
	size, err := tr.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (tr *TaskReplayer) replay(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var task domain.Task
	if err := json.Unmarshal(item.Data, &task); err != nil {
		return err
	}

	switch item.Operation {
	case usecase.OperationCreate:
		_, err := tr.tasks.Create(ctx, &task)
		return err
	case usecase.OperationComplete:
		at := time.Now()
		if task.CompletionDate != nil {
			at = *task.CompletionDate
		}
		_, err := tr.tasks.Complete(ctx, task.UserID, task.ID, at)
		return err
	case usecase.OperationDelete:
		return tr.tasks.Delete(ctx, task.UserID, task.ID)
	default:
		return fmt.Errorf("unsupported operation %s", item.Operation)
	}
}
