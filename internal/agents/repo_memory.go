package agents

import (
	"context"
	"sort"
	"sync"

	"voice-dashboard/internal/apperrors"
)

// MemoryRepo is an in-memory repository for tests. Link operations hold the
// lock for their whole duration, mirroring the Postgres transaction.
type MemoryRepo struct {
	mu      sync.Mutex
	agents  map[string]Agent
	voice   map[string]VoiceConfig
	numbers map[string]PhoneNumber
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{agents: map[string]Agent{}, voice: map[string]VoiceConfig{}, numbers: map[string]PhoneNumber{}}
}

// AddNumber seeds a phone number.
func (r *MemoryRepo) AddNumber(n PhoneNumber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numbers[n.ID] = n
}

func (r *MemoryRepo) Create(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.VoiceConfig, a.PhoneNumber = nil, nil
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) hydrate(a Agent) Agent {
	if vc, ok := r.voice[a.ID]; ok {
		a.VoiceConfig = &vc
		if n, ok := r.numbers[vc.PhoneNumberID]; ok {
			a.PhoneNumber = &n
		}
	}
	return a
}

func (r *MemoryRepo) get(organizationID, id string) (Agent, bool) {
	a, ok := r.agents[id]
	if !ok || a.OrganizationID != organizationID {
		return Agent{}, false
	}
	return a, true
}

func (r *MemoryRepo) Get(ctx context.Context, organizationID, id string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.get(organizationID, id)
	if !ok {
		return Agent{}, apperrors.NotFound("agent", id)
	}
	return r.hydrate(a), nil
}

func (r *MemoryRepo) List(ctx context.Context, organizationID string, f ListFilter) ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Agent, 0)
	for _, a := range r.agents {
		if a.OrganizationID != organizationID {
			continue
		}
		if (f.Type != "" && a.Type != f.Type) || (f.Status != "" && a.Status != f.Status) {
			continue
		}
		out = append(out, r.hydrate(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.get(a.OrganizationID, a.ID); !ok {
		return apperrors.NotFound("agent", a.ID)
	}
	a.VoiceConfig, a.PhoneNumber = nil, nil
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) UpsertVoiceConfig(ctx context.Context, organizationID string, vc VoiceConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.get(organizationID, vc.AgentID); !ok {
		return apperrors.NotFound("agent", vc.AgentID)
	}
	if cur, ok := r.voice[vc.AgentID]; ok {
		vc.PhoneNumberID = cur.PhoneNumberID
	}
	r.voice[vc.AgentID] = vc
	return nil
}

func (r *MemoryRepo) Link(ctx context.Context, organizationID, agentID, numberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.get(organizationID, agentID); !ok {
		return apperrors.NotFound("agent", agentID)
	}
	n, ok := r.numbers[numberID]
	if !ok || n.OrganizationID != organizationID {
		return apperrors.NotFound("phone number", numberID)
	}
	if n.AgentID != "" && n.AgentID != agentID {
		prev := r.voice[n.AgentID]
		prev.PhoneNumberID = ""
		r.voice[n.AgentID] = prev
	}
	r.unlinkLocked(agentID)

	vc := r.voice[agentID]
	vc.AgentID = agentID
	vc.PhoneNumberID = numberID
	r.voice[agentID] = vc
	n.AgentID = agentID
	n.Status = NumberAssigned
	r.numbers[numberID] = n
	return nil
}

func (r *MemoryRepo) unlinkLocked(agentID string) {
	vc, ok := r.voice[agentID]
	if !ok || vc.PhoneNumberID == "" {
		return
	}
	if n, ok := r.numbers[vc.PhoneNumberID]; ok && n.AgentID == agentID {
		n.AgentID = ""
		n.Status = NumberAvailable
		r.numbers[n.ID] = n
	}
	vc.PhoneNumberID = ""
	r.voice[agentID] = vc
}

func (r *MemoryRepo) Unlink(ctx context.Context, organizationID, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.get(organizationID, agentID); !ok {
		return apperrors.NotFound("agent", agentID)
	}
	r.unlinkLocked(agentID)
	return nil
}

func (r *MemoryRepo) numbersWhere(keep func(PhoneNumber) bool) []PhoneNumber {
	out := make([]PhoneNumber, 0)
	for _, n := range r.numbers {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (r *MemoryRepo) ListNumbers(ctx context.Context, organizationID string) ([]PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numbersWhere(func(n PhoneNumber) bool { return n.OrganizationID == organizationID }), nil
}

func (r *MemoryRepo) ListPool(ctx context.Context) ([]PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numbersWhere(func(n PhoneNumber) bool { return n.OrganizationID == "" && n.Status == NumberAvailable }), nil
}

func (r *MemoryRepo) GetNumber(ctx context.Context, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[id]
	if !ok {
		return PhoneNumber{}, apperrors.NotFound("phone number", id)
	}
	return n, nil
}

func (r *MemoryRepo) ClaimNumber(ctx context.Context, organizationID, numberID string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[numberID]
	if !ok {
		return PhoneNumber{}, apperrors.NotFound("phone number", numberID)
	}
	if n.OrganizationID != "" || n.Status != NumberAvailable {
		return PhoneNumber{}, apperrors.Conflict("phone number", "number is not in the pool")
	}
	n.OrganizationID = organizationID
	r.numbers[numberID] = n
	return n, nil
}

func (r *MemoryRepo) ReleaseNumber(ctx context.Context, organizationID, numberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.numbers[numberID]
	if !ok || n.OrganizationID != organizationID {
		return apperrors.NotFound("phone number", numberID)
	}
	if n.AgentID != "" {
		r.unlinkLocked(n.AgentID)
		n = r.numbers[numberID]
	}
	n.OrganizationID = ""
	n.AgentID = ""
	n.Status = NumberAvailable
	r.numbers[numberID] = n
	return nil
}
