package services

import (
	"context"
	"encoding/json"

	"github.com/smarttask/backend/domain"
	"github.com/smarttask/backend/internal/infrastructure/buffer"
	"github.com/smarttask/backend/usecase"
)

// BufferBridge adapts the replayer to the usecase.OperationBuffer port.
type BufferBridge struct {
	replayer *TaskReplayer
}

func NewBufferBridge(replayer *TaskReplayer) *BufferBridge {
	return &BufferBridge{replayer: replayer}
}

func (b *BufferBridge) BufferTask(ctx context.Context, operation string, task *domain.Task) error {
	if b.replayer == nil || task == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	item := buffer.Item{
		ID:        task.ID,
		UserID:    task.UserID,
		TaskID:    task.ID,
		Operation: operation,
		Data:      payload,
		Weight:    task.Priority.Weight(),
	}
	return b.replayer.Enqueue(ctx, item)
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
