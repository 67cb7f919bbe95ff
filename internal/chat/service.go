package chat

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
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, organizationID, id string) (Session, error)
	ListSessions(ctx context.Context, organizationID string, f ListFilter) ([]Session, error)
	// UpdateSessionStatus applies the change only while the stored status equals from.
	UpdateSessionStatus(ctx context.Context, organizationID, id string, from, next SessionStatus, assignedTo string, at time.Time) (Session, error)
	AppendMessage(ctx context.Context, m Message) error
	ListMessages(ctx context.Context, organizationID, sessionID string) ([]Message, error)
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

func (s *Service) CreateSession(ctx context.Context, organizationID string, in CreateSessionInput) (Session, error) {
	if organizationID == "" {
		return Session{}, apperrors.Validation("organization_id", "is required")
	}
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}
	now := s.clock().UTC()
	sess := Session{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		AgentID:        in.AgentID,
		CustomerPhone:  in.CustomerPhone,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		Status:         SessionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Service) ListSessions(ctx context.Context, organizationID string, f ListFilter) ([]Session, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validation("status", "unknown session status")
	}
	return s.repo.ListSessions(ctx, organizationID, f)
}

// GetSession returns the session and its messages oldest first.
func (s *Service) GetSession(ctx context.Context, organizationID, id string) (SessionDetail, error) {
	sess, err := s.repo.GetSession(ctx, organizationID, id)
	if err != nil {
		return SessionDetail{}, err
	}
	msgs, err := s.repo.ListMessages(ctx, organizationID, id)
	if err != nil {
		return SessionDetail{}, err
	}
	return SessionDetail{Session: sess, Messages: msgs}, nil
}

// AppendMessage adds to the transcript of an open session. Human messages are
// only accepted after handover; AI messages only while the AI owns the session.
func (s *Service) AppendMessage(ctx context.Context, organizationID, sessionID, userID string, in MessageInput) (Message, error) {
	if in.Type == "" {
		in.Type = MessageText
	}
	if err := validation.Struct(in); err != nil {
		return Message{}, err
	}
	sess, err := s.repo.GetSession(ctx, organizationID, sessionID)
	if err != nil {
		return Message{}, err
	}
	switch {
	case sess.Status == SessionClosed:
		return Message{}, apperrors.Conflict("chat session", "session is closed")
	case in.Sender == SenderHuman && sess.Status != SessionHumanHandover:
		return Message{}, apperrors.Conflict("chat session", "take over the session before replying")
	case in.Sender == SenderAI && sess.Status != SessionActive:
		return Message{}, apperrors.Conflict("chat session", "session is handled by a human")
	}

	m := Message{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		OrganizationID: organizationID,
		Sender:         in.Sender,
		Type:           in.Type,
		Content:        in.Content,
		MediaURL:       in.MediaURL,
		CreatedAt:      s.clock().UTC(),
	}
	if in.Sender == SenderHuman {
		m.SenderID = userID
	}
	if err := s.repo.AppendMessage(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Handover assigns the session to a human operator.
func (s *Service) Handover(ctx context.Context, organizationID, sessionID, userID string) (Session, error) {
	if userID == "" {
		return Session{}, apperrors.Validation("user_id", "is required")
	}
	sess, err := s.transition(ctx, organizationID, sessionID, SessionHumanHandover, userID)
	if err != nil {
		return Session{}, err
	}
	if s.activity != nil {
		if err := s.activity.Record(ctx, organizationID, userID, audit.ActionChatHandover, "chat_session", sessionID, nil); err != nil {
			logger.From(ctx).Warn("activity record failed", "action", audit.ActionChatHandover, "session_id", sessionID, "err", err)
		}
	}
	return sess, nil
}

func (s *Service) ReturnToAI(ctx context.Context, organizationID, sessionID string) (Session, error) {
	return s.transition(ctx, organizationID, sessionID, SessionActive, "")
}

func (s *Service) Close(ctx context.Context, organizationID, sessionID string) (Session, error) {
	return s.transition(ctx, organizationID, sessionID, SessionClosed, "")
}

func (s *Service) transition(ctx context.Context, organizationID, sessionID string, next SessionStatus, assignedTo string) (Session, error) {
	sess, err := s.repo.GetSession(ctx, organizationID, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !sess.Status.CanTransitionTo(next) {
		return Session{}, apperrors.InvalidTransition("chat session", string(sess.Status), string(next))
	}
	if next == SessionClosed {
		assignedTo = sess.AssignedTo
	}
	return s.repo.UpdateSessionStatus(ctx, organizationID, sessionID, sess.Status, next, assignedTo, s.clock().UTC())
}
