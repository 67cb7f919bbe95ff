package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-dashboard/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	platformRole = "super_admin"
	clockLeeway  = 30 * time.Second
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenType     = errors.New("token_type mismatch")
	ErrMissingUser   = errors.New("user_id missing")
	ErrMissingRole   = errors.New("role missing in access token")
	ErrMissingTenant = errors.New("organization_id missing")
)

// RoleResolver looks up a user's current role. Refresh tokens carry no role,
// so a role change takes effect at the next refresh.
type RoleResolver interface {
	EffectiveRole(ctx context.Context, userID, organizationID string) (string, error)
}

// Manager issues and verifies dashboard session tokens (HS256).
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (m *Manager) IssuePair(now time.Time, userID, organizationID, role string) (TokenPair, error) {
	access, err := m.sign(m.claims(now, TokenTypeAccess, userID, organizationID, role, m.accessTTL))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(m.claims(now, TokenTypeRefresh, userID, organizationID, "", m.refreshTTL))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: now.Add(m.accessTTL).UTC()}, nil
}

// Refresh exchanges a refresh token for a new pair, re-reading the role.
func (m *Manager) Refresh(ctx context.Context, now time.Time, refreshToken string, roles RoleResolver) (TokenPair, error) {
	c, err := m.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role, err := roles.EffectiveRole(ctx, c.UserID, c.OrganizationID)
	if err != nil {
		return TokenPair{}, err
	}
	return m.IssuePair(now, c.UserID, c.OrganizationID, role)
}

func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	var c Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockLeeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	if _, err := jwt.ParseWithClaims(tokenString, &c, m.key, opts...); err != nil {
		return Claims{}, err
	}
	if err := c.check(expected); err != nil {
		return Claims{}, err
	}
	return c, nil
}

func (c Claims) check(expected TokenType) error {
	switch {
	case c.TokenType != expected:
		return ErrTokenType
	case c.UserID == "":
		return ErrMissingUser
	case expected != TokenTypeAccess:
		return nil
	case c.Role == "":
		return ErrMissingRole
	case c.OrganizationID == "" && c.Role != platformRole:
		return ErrMissingTenant
	}
	return nil
}

func (m *Manager) key(*jwt.Token) (any, error) { return m.secret, nil }

func (m *Manager) claims(now time.Time, typ TokenType, userID, organizationID, role string, ttl time.Duration) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           role,
		TokenType:      typ,
	}
	if m.audience != "" {
		c.Audience = jwt.ClaimStrings{m.audience}
	}
	return c
}

func (m *Manager) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}
