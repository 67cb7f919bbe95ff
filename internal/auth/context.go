package auth

import (
	"context"
	"errors"
)

// Identity is the authenticated caller. OrganizationID is empty for
// platform users that belong to no tenant.
type Identity struct {
	UserID         string
	OrganizationID string
	Role           string
}

type identityKey struct{}

var errNoIdentity = errors.New("identity not in context")

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

func UserID(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID, nil
	}
	return "", errNoIdentity
}

func OrganizationID(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.OrganizationID != "" {
		return id.OrganizationID, nil
	}
	return "", errors.New("organization_id not in context")
}

func Role(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.Role != "" {
		return id.Role, nil
	}
	return "", errors.New("role not in context")
}
