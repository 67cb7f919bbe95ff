package campaigns

import (
	"context"
	"strings"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/validation"
	"voice-dashboard/pkg/logger"

	"github.com/google/uuid"
)

const defaultConcurrency = 1

type Repository interface {
	// Create stores c with its Agents and ContactLists links atomically.
	Create(ctx context.Context, c Campaign) error
	Get(ctx context.Context, organizationID, id string) (Campaign, error)
	List(ctx context.Context, organizationID string, f ListFilter) ([]Campaign, error)
	Update(ctx context.Context, c Campaign) error
	ReplaceAgents(ctx context.Context, organizationID, id string, links []AgentLink) error
	ReplaceContactLists(ctx context.Context, organizationID, id string, listIDs []string) error
	SoftDelete(ctx context.Context, organizationID, id string, at time.Time) error
}

// ActivityRecorder is satisfied by *audit.Service.
type ActivityRecorder interface {
	Record(ctx context.Context, organizationID, userID string, action audit.Action, entityType, entityID string, details any) error
}

type Service struct {
	repo     Repository
	activity ActivityRecorder
	clock    func() time.Time
}

func NewService(repo Repository, activity ActivityRecorder) *Service {
	return &Service{repo: repo, activity: activity, clock: time.Now}
}

// linkAgents builds links for ids in order, dropping duplicates. primary wins
// when it is among ids; otherwise the first agent is primary.
func linkAgents(ids []string, primary string) []AgentLink {
	seen := make(map[string]struct{}, len(ids))
	out := make([]AgentLink, 0, len(ids))
	hasPrimary := false
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		isPrimary := id == primary
		hasPrimary = hasPrimary || isPrimary
		out = append(out, AgentLink{AgentID: id, IsPrimary: isPrimary})
	}
	if !hasPrimary && len(out) > 0 {
		out[0].IsPrimary = true
	}
	return out
}

func (s *Service) Create(ctx context.Context, organizationID, userID string, in CreateInput) (Campaign, error) {
	if organizationID == "" {
		return Campaign{}, apperrors.Validation("organization_id", "is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return Campaign{}, err
	}
	if in.Concurrency == 0 {
		in.Concurrency = defaultConcurrency
	}

	now := s.clock().UTC()
	c := Campaign{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Name:           in.Name,
		Description:    in.Description,
		Status:         StatusDraft,
		Concurrency:    in.Concurrency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	c.Agents = linkAgents(in.AgentIDs, in.PrimaryAgentID)
	for _, id := range dedupe(in.ContactListIDs) {
		c.ContactLists = append(c.ContactLists, ContactListRef{ID: id})
	}
	// The row and its links are written together; a bad link leaves no campaign behind.
	if err := s.repo.Create(ctx, c); err != nil {
		return Campaign{}, err
	}
	s.record(ctx, organizationID, userID, audit.ActionCampaignCreated, c.ID, map[string]string{"name": c.Name})
	return s.repo.Get(ctx, organizationID, c.ID)
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (Campaign, error) {
	return s.repo.Get(ctx, organizationID, id)
}

func (s *Service) List(ctx context.Context, organizationID string, f ListFilter) ([]Campaign, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validation("status", "unknown status "+string(f.Status))
	}
	return s.repo.List(ctx, organizationID, f)
}

func (s *Service) Update(ctx context.Context, organizationID, id string, in UpdateInput) (Campaign, error) {
	if err := validation.Struct(in); err != nil {
		return Campaign{}, err
	}
	c, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return Campaign{}, err
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Concurrency != nil {
		c.Concurrency = *in.Concurrency
	}
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (s *Service) SetStatus(ctx context.Context, organizationID, userID, id string, next Status) (Campaign, error) {
	if !next.Valid() {
		return Campaign{}, apperrors.Validation("status", "unknown status "+string(next))
	}
	c, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return Campaign{}, err
	}
	if c.Status == next {
		return c, nil
	}
	if !c.Status.CanTransitionTo(next) {
		return Campaign{}, apperrors.InvalidTransition("campaign", string(c.Status), string(next))
	}
	if next == StatusRunning {
		if _, ok := c.Primary(); !ok {
			return Campaign{}, apperrors.Validation("agents", "a running campaign needs a primary agent")
		}
	}
	from := c.Status
	c.Status = next
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Campaign{}, err
	}
	s.record(ctx, organizationID, userID, audit.ActionCampaignStatus, c.ID, map[string]string{"from": string(from), "to": string(next)})
	return c, nil
}

// SetAgents replaces the linked agents. primary may be empty.
func (s *Service) SetAgents(ctx context.Context, organizationID, id string, agentIDs []string, primary string) (Campaign, error) {
	if _, err := s.repo.Get(ctx, organizationID, id); err != nil {
		return Campaign{}, err
	}
	if err := s.repo.ReplaceAgents(ctx, organizationID, id, linkAgents(agentIDs, primary)); err != nil {
		return Campaign{}, err
	}
	return s.repo.Get(ctx, organizationID, id)
}

// SetPrimaryAgent moves the primary flag to agentID, which must already be linked.
func (s *Service) SetPrimaryAgent(ctx context.Context, organizationID, id, agentID string) (Campaign, error) {
	c, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return Campaign{}, err
	}
	ids := make([]string, 0, len(c.Agents))
	found := false
	for _, a := range c.Agents {
		ids = append(ids, a.AgentID)
		found = found || a.AgentID == agentID
	}
	if !found {
		return Campaign{}, apperrors.Validation("agent_id", "agent is not linked to the campaign")
	}
	if err := s.repo.ReplaceAgents(ctx, organizationID, id, linkAgents(ids, agentID)); err != nil {
		return Campaign{}, err
	}
	return s.repo.Get(ctx, organizationID, id)
}

func (s *Service) SetContactLists(ctx context.Context, organizationID, id string, listIDs []string) (Campaign, error) {
	if _, err := s.repo.Get(ctx, organizationID, id); err != nil {
		return Campaign{}, err
	}
	if err := s.repo.ReplaceContactLists(ctx, organizationID, id, dedupe(listIDs)); err != nil {
		return Campaign{}, err
	}
	return s.repo.Get(ctx, organizationID, id)
}

// Delete soft-deletes. Running campaigns must be stopped first.
func (s *Service) Delete(ctx context.Context, organizationID, userID, id string) error {
	c, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return err
	}
	if c.Status == StatusRunning {
		return apperrors.Conflict("campaign", "pause or complete the campaign before deleting it")
	}
	if err := s.repo.SoftDelete(ctx, organizationID, id, s.clock().UTC()); err != nil {
		return err
	}
	s.record(ctx, organizationID, userID, audit.ActionCampaignDeleted, id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, organizationID, userID string, action audit.Action, id string, details any) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, organizationID, userID, action, "campaign", id, details); err != nil {
		logger.From(ctx).Warn("activity record failed", "action", action, "campaign_id", id, "err", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
