package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the dashboard session token claims.
// OrganizationID is empty only for platform super_admin tokens.
type Claims struct {
	jwt.RegisteredClaims

	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Role           string    `json:"role"`
	TokenType      TokenType `json:"token_type"`
}

// VideoGrant is the room permission block of a media access token.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

// RoomClaims are the claims of a media room access token.
type RoomClaims struct {
	jwt.RegisteredClaims

	Name     string            `json:"name,omitempty"`
	Video    VideoGrant        `json:"video"`
	Metadata string            `json:"metadata,omitempty"`
	Attrs    map[string]string `json:"attributes,omitempty"`
}
