package audit

import (
	"encoding/json"
	"time"
)

// Event is an append-only activity_logs row.
//
// Events are never updated or deleted. Writes are best-effort: callers
// log failures and carry on.
type Event struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	UserID         string          `json:"user_id,omitempty" db:"user_id"`
	Action         Action          `json:"action" db:"action"`
	EntityType     string          `json:"entity_type,omitempty" db:"entity_type"`
	EntityID       string          `json:"entity_id,omitempty" db:"entity_id"`
	IPAddress      string          `json:"ip_address,omitempty" db:"ip_address"`
	Details        json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionSignup          Action = "user.signup"
	ActionCampaignCreated Action = "campaign.created"
	ActionCampaignStatus  Action = "campaign.status_changed"
	ActionCampaignDeleted Action = "campaign.deleted"
	ActionAgentCreated    Action = "agent.created"
	ActionPhoneConnected  Action = "phone_number.connected"
	ActionPhoneReleased   Action = "phone_number.released"
	ActionChatHandover    Action = "chat.handover"
	ActionTestCall        Action = "agent.test_call"
	ActionExport          Action = "calls.exported"
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	OrganizationID string
	UserID         string
	Action         Action
	EntityType     string
	Since          time.Time
	Limit          int
}
