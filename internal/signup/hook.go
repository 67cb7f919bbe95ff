package signup

import (
	"encoding/json"
	"fmt"
)

// HookPayload is the database webhook envelope posted on auth user inserts.
type HookPayload struct {
	Type   string          `json:"type"`
	Table  string          `json:"table"`
	Schema string          `json:"schema,omitempty"`
	Record json.RawMessage `json:"record"`
}

type authUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		FullName         string `json:"full_name"`
		OrganizationName string `json:"organization_name"`
	} `json:"raw_user_meta_data"`
}

// NewUserFromHook extracts the user from an INSERT on the users table.
func NewUserFromHook(p HookPayload) (NewUser, error) {
	if p.Type != "INSERT" {
		return NewUser{}, fmt.Errorf("unsupported event type %q", p.Type)
	}
	if p.Table != "users" {
		return NewUser{}, fmt.Errorf("unexpected table %q", p.Table)
	}
	var u authUser
	if err := json.Unmarshal(p.Record, &u); err != nil {
		return NewUser{}, fmt.Errorf("decode record: %w", err)
	}
	return NewUser{
		UserID:           u.ID,
		Email:            u.Email,
		FullName:         u.Metadata.FullName,
		OrganizationName: u.Metadata.OrganizationName,
	}, nil
}
