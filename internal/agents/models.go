package agents

import "time"

type Type string

const (
	TypeVoice Type = "voice"
	TypeChat  Type = "chat"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusActive || s == StatusInactive
}

type Agent struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	Name           string       `json:"name"`
	Type           Type         `json:"type"`
	Tone           string       `json:"tone,omitempty"`
	Language       string       `json:"language,omitempty"`
	SystemPrompt   string       `json:"system_prompt,omitempty"`
	Status         Status       `json:"status"`
	VoiceConfig    *VoiceConfig `json:"voice_config,omitempty"`
	PhoneNumber    *PhoneNumber `json:"phone_number,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// VoiceConfig is the one-to-one voice settings row of an agent.
type VoiceConfig struct {
	AgentID       string `json:"agent_id"`
	VoiceID       string `json:"voice_id,omitempty"`
	FirstMessage  string `json:"first_message,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
}

type NumberStatus string

const (
	NumberAvailable NumberStatus = "available"
	NumberAssigned  NumberStatus = "assigned"
	NumberReserved  NumberStatus = "reserved"
)

// PhoneNumber with an empty OrganizationID sits in the shared pool.
type PhoneNumber struct {
	ID             string       `json:"id"`
	Number         string       `json:"number"`
	Status         NumberStatus `json:"status"`
	OrganizationID string       `json:"organization_id,omitempty"`
	AgentID        string       `json:"agent_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type CreateInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Type         Type   `json:"type" validate:"required,oneof=voice chat"`
	Tone         string `json:"tone" validate:"max=60"`
	Language     string `json:"language" validate:"max=20"`
	SystemPrompt string `json:"system_prompt" validate:"max=20000"`
}

type UpdateInput struct {
	Name         *string `json:"name" validate:"omitnil,min=1,max=120"`
	Tone         *string `json:"tone" validate:"omitnil,max=60"`
	Language     *string `json:"language" validate:"omitnil,max=20"`
	SystemPrompt *string `json:"system_prompt" validate:"omitnil,max=20000"`
}

type VoiceConfigInput struct {
	VoiceID      string `json:"voice_id" validate:"max=120"`
	FirstMessage string `json:"first_message" validate:"max=2000"`
}

type ListFilter struct {
	Type   Type
	Status Status
}
