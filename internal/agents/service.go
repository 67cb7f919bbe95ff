package agents

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

type Repository interface {
	Create(ctx context.Context, a Agent) error
	Get(ctx context.Context, organizationID, id string) (Agent, error)
	List(ctx context.Context, organizationID string, f ListFilter) ([]Agent, error)
	Update(ctx context.Context, a Agent) error
	UpsertVoiceConfig(ctx context.Context, organizationID string, vc VoiceConfig) error

	// Link sets numberID as agentID's number in one atomic step. Any previous
	// holder of the number and any previous number of the agent are unlinked.
	Link(ctx context.Context, organizationID, agentID, numberID string) error
	// Unlink clears agentID's number, if any.
	Unlink(ctx context.Context, organizationID, agentID string) error

	ListNumbers(ctx context.Context, organizationID string) ([]PhoneNumber, error)
	ListPool(ctx context.Context) ([]PhoneNumber, error)
	GetNumber(ctx context.Context, id string) (PhoneNumber, error)
	// ClaimNumber moves an available pool number into organizationID.
	ClaimNumber(ctx context.Context, organizationID, numberID string) (PhoneNumber, error)
	// ReleaseNumber returns a number to the pool, unlinking its agent.
	ReleaseNumber(ctx context.Context, organizationID, numberID string) error
}

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

func (s *Service) Create(ctx context.Context, organizationID, userID string, in CreateInput) (Agent, error) {
	if organizationID == "" {
		return Agent{}, apperrors.Validation("organization_id", "is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return Agent{}, err
	}
	now := s.clock().UTC()
	a := Agent{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Name:           in.Name,
		Type:           in.Type,
		Tone:           in.Tone,
		Language:       in.Language,
		SystemPrompt:   in.SystemPrompt,
		Status:         StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Agent{}, err
	}
	s.record(ctx, organizationID, userID, audit.ActionAgentCreated, "agent", a.ID, map[string]string{"name": a.Name})
	return a, nil
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (Agent, error) {
	return s.repo.Get(ctx, organizationID, id)
}

func (s *Service) List(ctx context.Context, organizationID string, f ListFilter) ([]Agent, error) {
	return s.repo.List(ctx, organizationID, f)
}

func (s *Service) Update(ctx context.Context, organizationID, id string, in UpdateInput) (Agent, error) {
	if err := validation.Struct(in); err != nil {
		return Agent{}, err
	}
	a, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return Agent{}, err
	}
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Tone != nil {
		a.Tone = *in.Tone
	}
	if in.Language != nil {
		a.Language = *in.Language
	}
	if in.SystemPrompt != nil {
		a.SystemPrompt = *in.SystemPrompt
	}
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) SetStatus(ctx context.Context, organizationID, id string, st Status) (Agent, error) {
	if !st.Valid() {
		return Agent{}, apperrors.Validation("status", "unknown status "+string(st))
	}
	a, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return Agent{}, err
	}
	a.Status = st
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

// UpsertVoiceConfig writes voice settings. The phone link is untouched; use ConnectPhoneNumber.
func (s *Service) UpsertVoiceConfig(ctx context.Context, organizationID, agentID string, in VoiceConfigInput) (Agent, error) {
	if err := validation.Struct(in); err != nil {
		return Agent{}, err
	}
	a, err := s.repo.Get(ctx, organizationID, agentID)
	if err != nil {
		return Agent{}, err
	}
	if a.Type != TypeVoice {
		return Agent{}, apperrors.Validation("type", "only voice agents have a voice configuration")
	}
	vc := VoiceConfig{AgentID: agentID, VoiceID: in.VoiceID, FirstMessage: in.FirstMessage}
	if a.VoiceConfig != nil {
		vc.PhoneNumberID = a.VoiceConfig.PhoneNumberID
	}
	if err := s.repo.UpsertVoiceConfig(ctx, organizationID, vc); err != nil {
		return Agent{}, err
	}
	return s.repo.Get(ctx, organizationID, agentID)
}

func (s *Service) ConnectPhoneNumber(ctx context.Context, organizationID, userID, agentID, numberID string) (Agent, error) {
	a, err := s.repo.Get(ctx, organizationID, agentID)
	if err != nil {
		return Agent{}, err
	}
	if a.Type != TypeVoice {
		return Agent{}, apperrors.Validation("type", "only voice agents can hold a phone number")
	}
	n, err := s.repo.GetNumber(ctx, numberID)
	if err != nil {
		return Agent{}, err
	}
	if n.OrganizationID != organizationID {
		return Agent{}, apperrors.NotFound("phone number", numberID)
	}
	if n.Status == NumberReserved {
		return Agent{}, apperrors.Conflict("phone number", "number is reserved")
	}
	if err := s.repo.Link(ctx, organizationID, agentID, numberID); err != nil {
		return Agent{}, err
	}
	s.record(ctx, organizationID, userID, audit.ActionPhoneConnected, "agent", agentID, map[string]string{"phone_number_id": numberID, "previous_agent_id": n.AgentID})
	return s.repo.Get(ctx, organizationID, agentID)
}

func (s *Service) DisconnectPhoneNumber(ctx context.Context, organizationID, agentID string) (Agent, error) {
	if _, err := s.repo.Get(ctx, organizationID, agentID); err != nil {
		return Agent{}, err
	}
	if err := s.repo.Unlink(ctx, organizationID, agentID); err != nil {
		return Agent{}, err
	}
	return s.repo.Get(ctx, organizationID, agentID)
}

func (s *Service) ListNumbers(ctx context.Context, organizationID string) ([]PhoneNumber, error) {
	return s.repo.ListNumbers(ctx, organizationID)
}

func (s *Service) ListPool(ctx context.Context) ([]PhoneNumber, error) {
	return s.repo.ListPool(ctx)
}

func (s *Service) Claim(ctx context.Context, organizationID, numberID string) (PhoneNumber, error) {
	if organizationID == "" {
		return PhoneNumber{}, apperrors.Validation("organization_id", "is required")
	}
	return s.repo.ClaimNumber(ctx, organizationID, numberID)
}

func (s *Service) Release(ctx context.Context, organizationID, userID, numberID string) error {
	if err := s.repo.ReleaseNumber(ctx, organizationID, numberID); err != nil {
		return err
	}
	s.record(ctx, organizationID, userID, audit.ActionPhoneReleased, "phone_number", numberID, nil)
	return nil
}

func (s *Service) record(ctx context.Context, organizationID, userID string, action audit.Action, entityType, id string, details any) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, organizationID, userID, action, entityType, id, details); err != nil {
		logger.From(ctx).Warn("activity record failed", "action", action, "entity_type", entityType, "entity_id", id, "err", err)
	}
}
