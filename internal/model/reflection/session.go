package reflection

import "time"

// Status tracks a session through its lifecycle. Transitions are
// queued -> running -> completed|error; the terminal states never change.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further state transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Session captures one query's full pipeline run.
type Session struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Query       string     `json:"query"`
	MaxRounds   int        `json:"maxRounds"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}
