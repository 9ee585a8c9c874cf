package transport

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NoteRequest carries a free-text note for extraction.
type NoteRequest struct {
	Note string `json:"note"`
}

// TaskRequest creates a task with explicit fields, bypassing extraction.
type TaskRequest struct {
	Description string `json:"task"`
	Customer    string `json:"customer"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
}
