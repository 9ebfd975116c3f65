package domain

import "time"

// Task statuses as stored by the task service.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Task is a single task owned by a user. Tasks are written by the task
// service; this service only reads them.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"ownerId"`
}

// DueSummary holds per-user counts of tasks approaching or past their due
// date, excluding completed tasks.
type DueSummary struct {
	DueSoon int `json:"dueSoon"`
	Overdue int `json:"overdue"`
}
