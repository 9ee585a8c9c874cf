package domain

import (
	"fmt"
	"strings"
	"time"
)

// DueDateLayout is the textual calendar-date form (DD-MM-YYYY) used for due
// dates everywhere: in the model prompt, in storage and in the API.
const DueDateLayout = "02-01-2006"

// Priority is the closed urgency scale assigned during extraction.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority maps free text onto the closed priority set. Anything outside
// the three known values is rejected.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return "", NewError(ErrCodeInvalid, fmt.Sprintf("unknown priority %q", value))
}

// Weight orders priorities for replay: lower drains first.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Status is a task's lifecycle state. The only transition is active to
// completed; completed tasks never reopen.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a lifecycle state coming from the outside.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "active":
		return StatusActive, nil
	case "completed":
		return StatusCompleted, nil
	}
	return "", NewError(ErrCodeInvalid, fmt.Sprintf("unknown status %q", value))
}

// Task is a user-owned item produced by note extraction.
type Task struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Description    string     `json:"task"`
	Customer       string     `json:"customer"`
	DueDate        string     `json:"due_date"`
	Priority       Priority   `json:"priority"`
	Status         Status     `json:"status"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusCompleted
}

// ParseDueDate validates the DD-MM-YYYY textual form.
func ParseDueDate(value string) (time.Time, error) {
	due, err := time.Parse(DueDateLayout, value)
	if err != nil {
		return time.Time{}, WrapError(ErrCodeInvalid, fmt.Sprintf("due date %q is not DD-MM-YYYY", value), err)
	}
	return due, nil
}

// IsOverdue reports whether the due date falls strictly before the current
// day. An unparseable due date is treated as not overdue.
func IsOverdue(dueDate string, now time.Time) bool {
	due, err := time.Parse(DueDateLayout, dueDate)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}
