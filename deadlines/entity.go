package deadlines

import "strings"

// Status is the lifecycle state of a trackable entity.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusOnHold     Status = "On Hold"
)

// Entity is anything with a due date the engine should watch. Callers
// assemble a fresh slice for each evaluation; the engine keeps no reference.
type Entity struct {
	ID         string `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	DueDate    string `json:"due_date" yaml:"due_date"` // "2025-05-06" or "6-May"
	Status     Status `json:"status" yaml:"status"`
	AssignedTo string `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
}

// Tracked reports whether the entity takes part in evaluation at all:
// completed and on-hold entities and entities without a due date do not.
func (e Entity) Tracked() bool {
	if strings.TrimSpace(e.DueDate) == "" {
		return false
	}
	switch e.Status {
	case StatusCompleted, StatusOnHold:
		return false
	}
	return true
}
