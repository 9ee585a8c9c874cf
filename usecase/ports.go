package usecase

import (
	"context"

	"github.com/smarttask/backend/domain"
)

// Task mutation names shared with the offline buffer.
const (
	OperationCreate   = "create"
	OperationComplete = "complete"
	OperationDelete   = "delete"
)

// OperationBuffer abstracts the offline write buffer so use cases stay
// storage-agnostic.
type OperationBuffer interface {
	BufferTask(ctx context.Context, operation string, task *domain.Task) error
}

// NoteExtractor turns a free-text note into a validated task draft.
type NoteExtractor interface {
	Extract(ctx context.Context, note string) (*domain.Draft, error)
}
