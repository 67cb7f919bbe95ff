package orgs

import (
	"context"
	"strings"
	"testing"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/rbac"
)

func TestSlugify(t *testing.T) {
	if got := Slugify("  Acme Calls, Inc. "); got != "acme-calls-inc" {
		t.Fatalf("unexpected slug %q", got)
	}
}

func TestCreateOrganization(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	o, err := svc.CreateOrganization(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(o.Slug, "acme-") || o.ID == "" {
		t.Fatalf("unexpected org %+v", o)
	}
	if _, err := svc.CreateOrganization(context.Background(), " "); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssignRole_Rules(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.AssignRole(ctx, "u", "", rbac.RoleAdmin); !apperrors.IsValidation(err) {
		t.Fatalf("expected org required, got %v", err)
	}
	if _, err := svc.AssignRole(ctx, "u", "o", rbac.RoleSuperAdmin); !apperrors.IsValidation(err) {
		t.Fatalf("expected platform role without org, got %v", err)
	}
	if _, err := svc.AssignRole(ctx, "u", "o", "owner"); !apperrors.IsValidation(err) {
		t.Fatalf("expected unknown role, got %v", err)
	}
}

func TestEffectiveRole_PicksStrongest(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	_, _ = svc.AssignRole(ctx, "u", "o1", rbac.RoleMember)
	_, _ = svc.AssignRole(ctx, "u", "o1", rbac.RoleManager)
	_, _ = svc.AssignRole(ctx, "u", "o2", rbac.RoleAdmin)

	role, err := svc.EffectiveRole(ctx, "u", "o1")
	if err != nil || role != rbac.RoleManager {
		t.Fatalf("expected manager, got %q %v", role, err)
	}
	if _, err := svc.EffectiveRole(ctx, "u", "o3"); !apperrors.IsUnauthorized(err) {
		t.Fatalf("expected error for org without role")
	}
}
