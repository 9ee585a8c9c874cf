package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Item is a task mutation waiting to be replayed against Postgres. Weight
// comes from the task's priority so urgent work drains first.
type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	TaskID    string          `json:"task_id"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Weight    int             `json:"weight"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Weight <= 0 || i.Weight > 3 {
		i.Weight = 2
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
