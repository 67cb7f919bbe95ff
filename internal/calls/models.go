package calls

import "time"

// Call is written by the external call-handling service. The dashboard only reads it.
type Call struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organization_id"`
	CampaignID     string   `json:"campaign_id,omitempty"`
	AgentID        string   `json:"agent_id,omitempty"`
	CallType       CallType `json:"call_type"`
	Status         Status   `json:"status"`
	Outcome        string   `json:"outcome,omitempty"`

	FromNumber string `json:"from_number,omitempty"`
	ToNumber   string `json:"to_number,omitempty"`

	DurationSeconds int      `json:"duration_seconds"`
	SentimentScore  *float64 `json:"sentiment_score,omitempty"`
	SentimentLabel  string   `json:"sentiment_label,omitempty"`
	RecordingURL    string   `json:"recording_url,omitempty"`
	Transcript      string   `json:"transcript,omitempty"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CallType string

const (
	CallTypeInbound  CallType = "inbound"
	CallTypeOutbound CallType = "outbound"
	CallTypeWebcall  CallType = "webcall"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusNoAnswer   Status = "no_answer"
	StatusBusy       Status = "busy"
	StatusCanceled   Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRinging, StatusInProgress, StatusCompleted,
		StatusFailed, StatusNoAnswer, StatusBusy, StatusCanceled:
		return true
	}
	return false
}

// Connected reports whether the callee picked up.
func (c Call) Connected() bool {
	return c.Status == StatusCompleted || c.Status == StatusInProgress
}

// Filter narrows List. Zero fields match everything; To is exclusive.
type Filter struct {
	CampaignID string
	AgentID    string
	Status     Status
	CallType   CallType
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

func (f Filter) Match(c Call) bool {
	switch {
	case f.CampaignID != "" && c.CampaignID != f.CampaignID:
		return false
	case f.AgentID != "" && c.AgentID != f.AgentID:
		return false
	case f.Status != "" && c.Status != f.Status:
		return false
	case f.CallType != "" && c.CallType != f.CallType:
		return false
	case !f.From.IsZero() && c.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !c.CreatedAt.Before(f.To):
		return false
	}
	return true
}
