package campaigns

import (
	"context"
	"sort"
	"sync"
	"time"

	"voice-dashboard/internal/apperrors"
)

type owned struct {
	organizationID string
	name           string
}

// MemoryRepo is an in-memory repository for tests. Agents and contact lists
// must be registered with AddAgent and AddContactList before they can be linked.
type MemoryRepo struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
	agents    map[string]owned
	lists     map[string]owned
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{campaigns: map[string]Campaign{}, agents: map[string]owned{}, lists: map[string]owned{}}
}

func (r *MemoryRepo) AddAgent(id, organizationID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = owned{organizationID: organizationID, name: name}
}

func (r *MemoryRepo) AddContactList(id, organizationID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[id] = owned{organizationID: organizationID, name: name}
}

func (r *MemoryRepo) resolveAgents(organizationID string, links []AgentLink) ([]AgentLink, error) {
	out := make([]AgentLink, 0, len(links))
	for _, l := range links {
		a, ok := r.agents[l.AgentID]
		if !ok || a.organizationID != organizationID {
			return nil, apperrors.Validation("agent_ids", "unknown agent "+l.AgentID)
		}
		l.Name = a.name
		out = append(out, l)
	}
	return out, nil
}

func (r *MemoryRepo) resolveLists(organizationID string, ids []string) ([]ContactListRef, error) {
	out := make([]ContactListRef, 0, len(ids))
	for _, id := range ids {
		l, ok := r.lists[id]
		if !ok || l.organizationID != organizationID {
			return nil, apperrors.Validation("contact_list_ids", "unknown contact list "+id)
		}
		out = append(out, ContactListRef{ID: id, Name: l.name})
	}
	return out, nil
}

func (r *MemoryRepo) Create(ctx context.Context, c Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; ok {
		return apperrors.Conflict("campaign", "exists")
	}
	agents, err := r.resolveAgents(c.OrganizationID, c.Agents)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(c.ContactLists))
	for _, l := range c.ContactLists {
		ids = append(ids, l.ID)
	}
	lists, err := r.resolveLists(c.OrganizationID, ids)
	if err != nil {
		return err
	}
	c.Agents, c.ContactLists = agents, lists
	r.campaigns[c.ID] = c
	return nil
}

func (r *MemoryRepo) get(organizationID, id string) (Campaign, bool) {
	c, ok := r.campaigns[id]
	if !ok || c.OrganizationID != organizationID || c.DeletedAt != nil {
		return Campaign{}, false
	}
	return c, true
}

func clone(c Campaign) Campaign {
	c.Agents = append([]AgentLink{}, c.Agents...)
	c.ContactLists = append([]ContactListRef{}, c.ContactLists...)
	return c
}

func (r *MemoryRepo) Get(ctx context.Context, organizationID, id string) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.get(organizationID, id)
	if !ok {
		return Campaign{}, apperrors.NotFound("campaign", id)
	}
	return clone(c), nil
}

func (r *MemoryRepo) List(ctx context.Context, organizationID string, f ListFilter) ([]Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Campaign, 0)
	for _, c := range r.campaigns {
		if c.OrganizationID != organizationID {
			continue
		}
		if c.DeletedAt != nil && !f.IncludeDeleted {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.get(c.OrganizationID, c.ID)
	if !ok {
		return apperrors.NotFound("campaign", c.ID)
	}
	cur.Name, cur.Description, cur.Concurrency = c.Name, c.Description, c.Concurrency
	cur.Status, cur.UpdatedAt = c.Status, c.UpdatedAt
	r.campaigns[c.ID] = cur
	return nil
}

func (r *MemoryRepo) ReplaceAgents(ctx context.Context, organizationID, id string, links []AgentLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.get(organizationID, id)
	if !ok {
		return apperrors.NotFound("campaign", id)
	}
	agents, err := r.resolveAgents(organizationID, links)
	if err != nil {
		return err
	}
	c.Agents = agents
	r.campaigns[id] = c
	return nil
}

func (r *MemoryRepo) ReplaceContactLists(ctx context.Context, organizationID, id string, listIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.get(organizationID, id)
	if !ok {
		return apperrors.NotFound("campaign", id)
	}
	lists, err := r.resolveLists(organizationID, listIDs)
	if err != nil {
		return err
	}
	c.ContactLists = lists
	r.campaigns[id] = c
	return nil
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, organizationID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.get(organizationID, id)
	if !ok {
		return apperrors.NotFound("campaign", id)
	}
	c.DeletedAt = &at
	r.campaigns[id] = c
	return nil
}
