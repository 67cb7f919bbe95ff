package orgs

import (
	"context"
	"sort"
	"sync"

	"voice-dashboard/internal/apperrors"
)

// MemoryRepo is an in-memory repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	orgs     map[string]Organization
	profiles map[string]Profile
	roles    map[string]UserRole

	// FailAssignRole makes AssignRole return this error.
	FailAssignRole error
	// FailCreateProfile makes CreateProfile return this error.
	FailCreateProfile error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{orgs: map[string]Organization{}, profiles: map[string]Profile{}, roles: map[string]UserRole{}}
}

func (r *MemoryRepo) CreateOrganization(ctx context.Context, o Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.orgs {
		if e.Slug == o.Slug {
			return apperrors.Conflict("organization", "slug taken")
		}
	}
	r.orgs[o.ID] = o
	return nil
}

func (r *MemoryRepo) GetOrganization(ctx context.Context, id string) (Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[id]
	if !ok {
		return Organization{}, apperrors.NotFound("organization", id)
	}
	return o, nil
}

func (r *MemoryRepo) ListOrganizations(ctx context.Context, limit, offset int) ([]OrganizationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrganizationSummary, 0, len(r.orgs))
	for _, o := range r.orgs {
		s := OrganizationSummary{Organization: o}
		for _, p := range r.profiles {
			if p.OrganizationID == o.ID {
				s.MemberCount++
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []OrganizationSummary{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) DeleteOrganization(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orgs, id)
	return nil
}

func (r *MemoryRepo) CreateProfile(ctx context.Context, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreateProfile != nil {
		return r.FailCreateProfile
	}
	if _, ok := r.profiles[p.ID]; ok {
		return apperrors.Conflict("profile", "exists")
	}
	r.profiles[p.ID] = p
	return nil
}

func (r *MemoryRepo) GetProfile(ctx context.Context, userID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, apperrors.NotFound("profile", userID)
	}
	return p, nil
}

func (r *MemoryRepo) DeleteProfile(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, userID)
	return nil
}

func (r *MemoryRepo) AssignRole(ctx context.Context, ur UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAssignRole != nil {
		return r.FailAssignRole
	}
	r.roles[ur.ID] = ur
	return nil
}

func (r *MemoryRepo) RemoveRole(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roles, id)
	return nil
}

func (r *MemoryRepo) ListRoles(ctx context.Context, userID string) ([]UserRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UserRole, 0)
	for _, ur := range r.roles {
		if ur.UserID == userID {
			out = append(out, ur)
		}
	}
	return out, nil
}

// Counts reports stored rows, for assertions.
func (r *MemoryRepo) Counts() (orgs, profiles, roles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orgs), len(r.profiles), len(r.roles)
}
