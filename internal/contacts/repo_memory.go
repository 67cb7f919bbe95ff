package contacts

import (
	"context"
	"sort"
	"sync"

	"voice-dashboard/internal/apperrors"
)

// MemoryRepo is an in-memory repository for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	lists   map[string]List
	members map[string][]Member
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{lists: map[string]List{}, members: map[string][]Member{}}
}

func (r *MemoryRepo) CreateList(ctx context.Context, l List) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[l.ID] = l
	return nil
}

func (r *MemoryRepo) getList(organizationID, id string) (List, bool) {
	l, ok := r.lists[id]
	if !ok || l.OrganizationID != organizationID {
		return List{}, false
	}
	l.ContactCount = len(r.members[id])
	return l, true
}

func (r *MemoryRepo) GetList(ctx context.Context, organizationID, id string) (List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.getList(organizationID, id)
	if !ok {
		return List{}, apperrors.NotFound("contact list", id)
	}
	return l, nil
}

func (r *MemoryRepo) ListLists(ctx context.Context, organizationID string) ([]List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]List, 0)
	for id := range r.lists {
		if l, ok := r.getList(organizationID, id); ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) DeleteList(ctx context.Context, organizationID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.getList(organizationID, id); !ok {
		return apperrors.NotFound("contact list", id)
	}
	delete(r.lists, id)
	delete(r.members, id)
	return nil
}

func (r *MemoryRepo) AddMembers(ctx context.Context, ms []Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range ms {
		for _, e := range r.members[m.ListID] {
			if e.PhoneNumber == m.PhoneNumber {
				return apperrors.Conflict("contact", m.PhoneNumber+" is already on the list")
			}
		}
	}
	for _, m := range ms {
		r.members[m.ListID] = append(r.members[m.ListID], m)
	}
	return nil
}

func (r *MemoryRepo) ListMembers(ctx context.Context, organizationID, listID string, limit, offset int) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.getList(organizationID, listID); !ok {
		return nil, apperrors.NotFound("contact list", listID)
	}
	all := r.members[listID]
	if offset >= len(all) {
		return []Member{}, nil
	}
	end := min(offset+limit, len(all))
	return append([]Member{}, all[offset:end]...), nil
}

func (r *MemoryRepo) RemoveMember(ctx context.Context, organizationID, listID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.getList(organizationID, listID); !ok {
		return apperrors.NotFound("contact list", listID)
	}
	ms := r.members[listID]
	for i, m := range ms {
		if m.ID == id {
			r.members[listID] = append(ms[:i:i], ms[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("contact", id)
}
