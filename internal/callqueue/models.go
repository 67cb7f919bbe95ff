package callqueue

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no forward transition leaves s. Retry is separate.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo covers forward moves only: pending→processing,
// processing→completed|failed, and any non-terminal state→cancelled.
func (s Status) CanTransitionTo(next Status) bool {
	switch {
	case next == StatusCancelled:
		return !s.Terminal()
	case s == StatusPending:
		return next == StatusProcessing
	case s == StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Retryable reports whether Retry may reset s to pending.
func (s Status) Retryable() bool { return s == StatusFailed || s == StatusCancelled }

type Source string

const (
	SourceCampaign      Source = "campaign"
	SourceOrder         Source = "order"
	SourceAbandonedCart Source = "abandoned_cart"
)

type Item struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	CampaignID     string    `json:"campaign_id,omitempty"`
	ContactID      string    `json:"contact_id,omitempty"`
	PhoneNumber    string    `json:"phone_number"`
	Status         Status    `json:"status"`
	Source         Source    `json:"source"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	RetryCount     int       `json:"retry_count"`
	LastError      string    `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type EnqueueInput struct {
	CampaignID  string    `json:"campaign_id"`
	ContactID   string    `json:"contact_id"`
	PhoneNumber string    `json:"phone_number" validate:"required,dialable"`
	Source      Source    `json:"source" validate:"omitempty,oneof=campaign order abandoned_cart"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type Filter struct {
	Status     Status
	CampaignID string
	Limit      int
}
