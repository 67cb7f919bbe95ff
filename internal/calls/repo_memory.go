package calls

import (
	"context"
	"sort"
	"sync"

	"voice-dashboard/internal/apperrors"
)

// MemoryRepo is an in-memory repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	calls []Call
}

func NewMemoryRepo(seed ...Call) *MemoryRepo {
	return &MemoryRepo{calls: append([]Call{}, seed...)}
}

func (r *MemoryRepo) Add(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *MemoryRepo) List(ctx context.Context, organizationID string, f Filter) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range r.calls {
		if c.OrganizationID == organizationID && f.Match(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return []Call{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, organizationID, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.ID == id && c.OrganizationID == organizationID {
			return c, nil
		}
	}
	return Call{}, apperrors.NotFound("call", id)
}
