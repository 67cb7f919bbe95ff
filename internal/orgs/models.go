package orgs

import "time"

// Organization is the top-level tenant.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Profile is keyed by the auth user id.
type Profile struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Email          string    `json:"email" db:"email"`
	FullName       string    `json:"full_name,omitempty" db:"full_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// UserRole grants Role to a user. Platform roles carry no organization.
type UserRole struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	OrganizationID string    `json:"organization_id,omitempty" db:"organization_id"`
	Role           string    `json:"role" db:"role"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// OrganizationSummary is the admin overview row.
type OrganizationSummary struct {
	Organization
	MemberCount   int `json:"member_count"`
	CampaignCount int `json:"campaign_count"`
	AgentCount    int `json:"agent_count"`
}
