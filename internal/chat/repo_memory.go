package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"voice-dashboard/internal/apperrors"
)

// MemoryRepo is an in-memory repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]Session
	messages map[string][]Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: map[string]Session{}, messages: map[string][]Message{}}
}

func (r *MemoryRepo) CreateSession(ctx context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return apperrors.Conflict("chat session", "exists")
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetSession(ctx context.Context, organizationID, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.OrganizationID != organizationID {
		return Session{}, apperrors.NotFound("chat session", id)
	}
	return s, nil
}

func (r *MemoryRepo) ListSessions(ctx context.Context, organizationID string, f ListFilter) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0)
	for _, s := range r.sessions {
		switch {
		case s.OrganizationID != organizationID,
			f.Status != "" && s.Status != f.Status,
			f.AgentID != "" && s.AgentID != f.AgentID,
			f.AssignedTo != "" && s.AssignedTo != f.AssignedTo:
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepo) UpdateSessionStatus(ctx context.Context, organizationID, id string, from, next SessionStatus, assignedTo string, at time.Time) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.OrganizationID != organizationID {
		return Session{}, apperrors.NotFound("chat session", id)
	}
	if s.Status != from {
		return Session{}, apperrors.InvalidTransition("chat session", string(s.Status), string(next))
	}
	s.Status, s.AssignedTo, s.UpdatedAt = next, assignedTo, at
	r.sessions[id] = s
	return s, nil
}

func (r *MemoryRepo) AppendMessage(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[m.SessionID]
	if !ok || s.OrganizationID != m.OrganizationID {
		return apperrors.NotFound("chat session", m.SessionID)
	}
	r.messages[m.SessionID] = append(r.messages[m.SessionID], m)
	at := m.CreatedAt
	s.LastMessageAt, s.UpdatedAt = &at, at
	r.sessions[m.SessionID] = s
	return nil
}

func (r *MemoryRepo) ListMessages(ctx context.Context, organizationID, sessionID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.OrganizationID != organizationID {
		return nil, apperrors.NotFound("chat session", sessionID)
	}
	out := make([]Message, len(r.messages[sessionID]))
	copy(out, r.messages[sessionID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
