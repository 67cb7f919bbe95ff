// Package voice places calls through the external voice platform.
package voice

import (
	"context"
	"time"
)

// Provider is the voice-platform boundary. No platform HTTP calls happen outside adapters.
type Provider interface {
	Name() string
	PlaceTestCall(ctx context.Context, req TestCallRequest) (TestCallResult, error)
}

// TestCallRequest asks the platform to ring PhoneNumber with the given agent.
// PhoneNumber must be country-code prefixed.
type TestCallRequest struct {
	AgentID     string `json:"agent_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required,dialable"`

	// OrganizationID is informational for the platform's logs.
	OrganizationID string `json:"organization_id,omitempty"`
}

type TestCallResult struct {
	CallID    string    `json:"call_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	StartedAt time.Time `json:"-"`
}
