package notify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Severity is derived from the days remaining before a deadline.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Category is the routing hint handed to a Sink alongside each event.
type Category string

const (
	CategoryDeadline Category = "deadline"
	CategoryTicket   Category = "ticket"
	CategoryForm     Category = "form"
	CategorySystem   Category = "system"
)

// Valid reports whether c is one of the known routing categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDeadline, CategoryTicket, CategoryForm, CategorySystem:
		return true
	}
	return false
}

// Event is one deadline alert. Events are produced once and never mutated.
type Event struct {
	ID            string    `json:"id"`
	EntityID      string    `json:"entity_id"`
	Title         string    `json:"title"`
	DueDateRaw    string    `json:"due_date_raw"`
	DueDate       time.Time `json:"due_date"`
	DaysRemaining int       `json:"days_remaining"`
	Severity      Severity  `json:"severity"`
	AssignedTo    string    `json:"assigned_to,omitempty"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// EventID returns a stable identifier for the (entity, daysRemaining) pair.
// The same pair always yields the same ID, so queue consumers can drop
// redelivered copies.
func EventID(entityID string, daysRemaining int) string {
	sum := blake2b.Sum256([]byte(entityID + "#" + strconv.Itoa(daysRemaining)))
	return base58.Encode(sum[:16])
}

// DueMessage renders the human-readable alert line for an event.
func DueMessage(title string, daysRemaining int) string {
	switch daysRemaining {
	case 0:
		return fmt.Sprintf("%q is due today", title)
	case 1:
		return fmt.Sprintf("%q is due tomorrow", title)
	default:
		return fmt.Sprintf("%q is due in %d days", title, daysRemaining)
	}
}
