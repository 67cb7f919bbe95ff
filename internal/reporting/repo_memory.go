package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"voice-dashboard/internal/callqueue"
	"voice-dashboard/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests.
// It enforces organization isolation on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Calls []calls.Call
	Queue []callqueue.Item
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, organizationID string, from, to time.Time, campaignID string) ([]calls.Call, error) {
	if organizationID == "" {
		return nil, errors.New("organization_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f := calls.Filter{From: from, To: to, CampaignID: campaignID}
	out := make([]calls.Call, 0)
	for _, c := range r.Calls {
		if c.OrganizationID == organizationID && f.Match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) CountQueue(ctx context.Context, organizationID, campaignID string) (map[callqueue.Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[callqueue.Status]int{}
	for _, it := range r.Queue {
		if it.OrganizationID == organizationID && (campaignID == "" || it.CampaignID == campaignID) {
			out[it.Status]++
		}
	}
	return out, nil
}
