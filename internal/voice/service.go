package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"voice-dashboard/internal/validation"
)

type Service struct {
	provider Provider
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(p Provider, log *slog.Logger) *Service {
	return &Service{provider: p, log: log.With("component", "voice"), clock: time.Now}
}

// MakeTestCall validates the number and issues a single request to the platform.
func (s *Service) MakeTestCall(ctx context.Context, organizationID, agentID, phoneNumber string) (TestCallResult, error) {
	if s.provider == nil {
		return TestCallResult{}, errors.New("voice: provider not configured")
	}
	req := TestCallRequest{
		AgentID:        strings.TrimSpace(agentID),
		PhoneNumber:    strings.TrimSpace(phoneNumber),
		OrganizationID: organizationID,
	}
	if err := validation.Struct(req); err != nil {
		return TestCallResult{}, err
	}

	res, err := s.provider.PlaceTestCall(ctx, req)
	if err != nil {
		s.log.Warn("test call failed", "agent_id", req.AgentID, "provider", s.provider.Name(), "err", err)
		return TestCallResult{}, err
	}
	res.StartedAt = s.clock().UTC()
	s.log.Info("test call placed", "agent_id", req.AgentID, "call_id", res.CallID)
	return res, nil
}
