package callqueue

import (
	"context"
	"sort"
	"sync"

	"voice-dashboard/internal/apperrors"
)

// MemoryRepo is an in-memory repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	items map[string]Item
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{items: map[string]Item{}} }

func (r *MemoryRepo) Create(ctx context.Context, it Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = it
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, organizationID, id string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.OrganizationID != organizationID {
		return Item{}, apperrors.NotFound("call queue item", id)
	}
	return it, nil
}

func (r *MemoryRepo) List(ctx context.Context, organizationID string, f Filter) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0)
	for _, it := range r.items {
		if it.OrganizationID != organizationID {
			continue
		}
		if (f.Status != "" && it.Status != f.Status) || (f.CampaignID != "" && it.CampaignID != f.CampaignID) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) CompareAndSet(ctx context.Context, from Status, next Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[next.ID]
	if !ok || cur.OrganizationID != next.OrganizationID {
		return apperrors.NotFound("call queue item", next.ID)
	}
	if cur.Status != from {
		return apperrors.Conflict("call queue item", "status changed concurrently")
	}
	r.items[next.ID] = next
	return nil
}

// Set overwrites an item, for seeding tests.
func (r *MemoryRepo) Set(it Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = it
}
