package domain

// Draft is a validated task record produced by note extraction. It carries
// everything a Task needs except ownership and lifecycle, which are assigned
// at persistence time.
type Draft struct {
	Description string   `json:"task"`
	Customer    string   `json:"customer"`
	DueDate     string   `json:"due_date"`
	Priority    Priority `json:"priority"`
}
