package campaigns

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusDraft:   {StatusRunning, StatusCancelled},
	StatusRunning: {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused:  {StatusRunning, StatusCompleted, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// AgentLink is one row of campaign_agents.
type AgentLink struct {
	AgentID   string `json:"id"`
	Name      string `json:"name,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

type ContactListRef struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	ContactCount int    `json:"contact_count"`
}

type Campaign struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Status         Status           `json:"status"`
	Concurrency    int              `json:"concurrency"`
	Agents         []AgentLink      `json:"agents"`
	ContactLists   []ContactListRef `json:"contact_lists"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty"`
}

// Primary returns the primary agent link, if any.
func (c Campaign) Primary() (AgentLink, bool) {
	for _, a := range c.Agents {
		if a.IsPrimary {
			return a, true
		}
	}
	return AgentLink{}, false
}

type CreateInput struct {
	Name           string   `json:"name" validate:"required,max=200"`
	Description    string   `json:"description" validate:"max=2000"`
	Concurrency    int      `json:"concurrency" validate:"gte=0,lte=100"`
	AgentIDs       []string `json:"agent_ids" validate:"dive,required"`
	PrimaryAgentID string   `json:"primary_agent_id"`
	ContactListIDs []string `json:"contact_list_ids" validate:"dive,required"`
}

// UpdateInput carries optional field changes. Nil fields are left alone.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	Concurrency *int    `json:"concurrency" validate:"omitnil,gte=0,lte=100"`
}

type ListFilter struct {
	Status         Status
	IncludeDeleted bool
}
