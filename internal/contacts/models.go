package contacts

import "time"

type List struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ContactCount   int       `json:"contact_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type Member struct {
	ID             string    `json:"id"`
	ListID         string    `json:"contact_list_id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	PhoneNumber    string    `json:"phone_number"`
	Email          string    `json:"email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type MemberInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	PhoneNumber string `json:"phone_number" validate:"required,dialable"`
	Email       string `json:"email" validate:"omitempty,email"`
}

// ImportResult reports a bulk add. Rejected maps input index to the reason.
type ImportResult struct {
	Added    []Member       `json:"added"`
	Rejected map[int]string `json:"rejected,omitempty"`
}
