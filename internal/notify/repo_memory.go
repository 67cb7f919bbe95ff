package notify

import (
	"context"
	"sort"
	"sync"

	"voice-dashboard/internal/apperrors"
)

type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Notification
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{rows: map[string]Notification{}} }

func (r *MemoryRepo) Insert(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[n.ID] = n
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, organizationID, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, 0)
	for _, n := range r.rows {
		if n.UserID != userID || (organizationID != "" && n.OrganizationID != organizationID) {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, organizationID, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID || (organizationID != "" && n.OrganizationID != organizationID) {
		return apperrors.NotFound("notification", id)
	}
	n.Read = true
	r.rows[id] = n
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}
