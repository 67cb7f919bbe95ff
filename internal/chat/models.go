package chat

import "time"

type SessionStatus string

const (
	SessionActive        SessionStatus = "active"
	SessionHumanHandover SessionStatus = "human_handover"
	SessionClosed        SessionStatus = "closed"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionHumanHandover, SessionClosed:
		return true
	}
	return false
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionActive:        {SessionHumanHandover, SessionClosed},
	SessionHumanHandover: {SessionActive, SessionClosed},
}

func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, n := range sessionTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

type Session struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	AgentID        string        `json:"agent_id"`
	CustomerPhone  string        `json:"customer_phone"`
	CustomerName   string        `json:"customer_name,omitempty"`
	Status         SessionStatus `json:"status"`
	AssignedTo     string        `json:"assigned_to,omitempty"`
	LastMessageAt  *time.Time    `json:"last_message_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type Sender string

const (
	SenderAI       Sender = "ai"
	SenderHuman    Sender = "human"
	SenderCustomer Sender = "customer"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageTemplate MessageType = "template"
	MessageMedia    MessageType = "media"
)

// Message rows are append-only.
type Message struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"session_id"`
	OrganizationID string      `json:"organization_id"`
	Sender         Sender      `json:"sender"`
	SenderID       string      `json:"sender_id,omitempty"`
	Type           MessageType `json:"message_type"`
	Content        string      `json:"content"`
	MediaURL       string      `json:"media_url,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SessionDetail is a session with its ordered transcript.
type SessionDetail struct {
	Session
	Messages []Message `json:"messages"`
}

type CreateSessionInput struct {
	AgentID       string `json:"agent_id" validate:"required"`
	CustomerPhone string `json:"customer_phone" validate:"required,dialable"`
	CustomerName  string `json:"customer_name" validate:"omitempty,max=200"`
}

type MessageInput struct {
	Sender   Sender      `json:"sender" validate:"required,oneof=ai human customer"`
	Type     MessageType `json:"message_type" validate:"omitempty,oneof=text template media"`
	Content  string      `json:"content" validate:"required_without=MediaURL,max=10000"`
	MediaURL string      `json:"media_url" validate:"omitempty,url"`
}

type ListFilter struct {
	Status     SessionStatus
	AgentID    string
	AssignedTo string
}
