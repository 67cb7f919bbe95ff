package orgs

import (
	"context"
	"regexp"
	"strings"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/rbac"

	"github.com/google/uuid"
)

type Repository interface {
	CreateOrganization(ctx context.Context, o Organization) error
	GetOrganization(ctx context.Context, id string) (Organization, error)
	ListOrganizations(ctx context.Context, limit, offset int) ([]OrganizationSummary, error)
	DeleteOrganization(ctx context.Context, id string) error

	CreateProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, userID string) (Profile, error)
	DeleteProfile(ctx context.Context, userID string) error

	AssignRole(ctx context.Context, r UserRole) error
	RemoveRole(ctx context.Context, id string) error
	ListRoles(ctx context.Context, userID string) ([]UserRole, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins alphanumeric runs with dashes.
func Slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

func (s *Service) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, apperrors.Validation("name", "is required")
	}
	now := s.clock().UTC()
	id := uuid.NewString()
	slug := Slugify(name)
	if slug == "" {
		slug = "org"
	}
	o := Organization{ID: id, Name: name, Slug: slug + "-" + id[:8], CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateOrganization(ctx, o); err != nil {
		return Organization{}, err
	}
	return o, nil
}

func (s *Service) GetOrganization(ctx context.Context, id string) (Organization, error) {
	if id == "" {
		return Organization{}, apperrors.Validation("id", "is required")
	}
	return s.repo.GetOrganization(ctx, id)
}

func (s *Service) ListOrganizations(ctx context.Context, limit, offset int) ([]OrganizationSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListOrganizations(ctx, limit, offset)
}

func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	return s.repo.DeleteOrganization(ctx, id)
}

func (s *Service) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" {
		return Profile{}, apperrors.Validation("id", "is required")
	}
	if p.OrganizationID == "" {
		return Profile{}, apperrors.Validation("organization_id", "is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock().UTC()
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *Service) DeleteProfile(ctx context.Context, userID string) error {
	return s.repo.DeleteProfile(ctx, userID)
}

// AssignRole grants an organization role. super_admin is platform-wide and must not carry an organization.
func (s *Service) AssignRole(ctx context.Context, userID, organizationID, role string) (UserRole, error) {
	if userID == "" {
		return UserRole{}, apperrors.Validation("user_id", "is required")
	}
	switch {
	case rbac.IsSuperAdmin(role):
		if organizationID != "" {
			return UserRole{}, apperrors.Validation("organization_id", "must be empty for platform roles")
		}
	case rbac.IsOrganizationRole(role):
		if organizationID == "" {
			return UserRole{}, apperrors.Validation("organization_id", "is required")
		}
	default:
		return UserRole{}, apperrors.Validation("role", "unknown role "+role)
	}
	r := UserRole{ID: uuid.NewString(), UserID: userID, OrganizationID: organizationID, Role: role, CreatedAt: s.clock().UTC()}
	if err := s.repo.AssignRole(ctx, r); err != nil {
		return UserRole{}, err
	}
	return r, nil
}

func (s *Service) RemoveRole(ctx context.Context, id string) error {
	return s.repo.RemoveRole(ctx, id)
}

// EffectiveRole picks the strongest role a user holds in organizationID.
func (s *Service) EffectiveRole(ctx context.Context, userID, organizationID string) (string, error) {
	roles, err := s.repo.ListRoles(ctx, userID)
	if err != nil {
		return "", err
	}
	best := ""
	for _, r := range roles {
		if rbac.IsSuperAdmin(r.Role) {
			return r.Role, nil
		}
		if r.OrganizationID != organizationID {
			continue
		}
		if rbac.Rank(r.Role) > rbac.Rank(best) {
			best = r.Role
		}
	}
	if best == "" {
		return "", &apperrors.AuthenticationError{Message: "user has no role in organization"}
	}
	return best, nil
}
