package notify

import "time"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing message. When persisted it lands in the
// notifications table; otherwise it is only logged.
type Notification struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id,omitempty" db:"organization_id"`
	UserID         string    `json:"user_id,omitempty" db:"user_id"`
	Level          Level     `json:"type" db:"type"`
	Title          string    `json:"title" db:"title"`
	Message        string    `json:"message" db:"message"`
	Read           bool      `json:"read" db:"read"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
