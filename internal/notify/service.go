package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"voice-dashboard/internal/apperrors"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, n Notification) error
	List(ctx context.Context, organizationID, userID string, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, organizationID, userID, id string) error
	Delete(ctx context.Context, id string) error
}

// Service persists notifications addressed to a user and logs the rest.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log.With("component", "notify"), clock: time.Now}
}

// Notify implements Notifier.
func (s *Service) Notify(ctx context.Context, n Notification) {
	LogNotifier{Log: s.log}.Notify(ctx, n)
	if n.UserID == "" {
		return
	}
	if _, err := s.Create(ctx, n); err != nil {
		s.log.Warn("notification not persisted", "err", err)
	}
}

// Create stores a notification for a user.
func (s *Service) Create(ctx context.Context, n Notification) (Notification, error) {
	if s.repo == nil {
		return Notification{}, errors.New("notify: repository not configured")
	}
	if n.UserID == "" {
		return Notification{}, apperrors.Validation("user_id", "is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return Notification{}, apperrors.Validation("title", "is required")
	}
	if n.Level == "" {
		n.Level = LevelInfo
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock().UTC()
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, organizationID, userID string, unreadOnly bool) ([]Notification, error) {
	if userID == "" {
		return nil, apperrors.Validation("user_id", "is required")
	}
	return s.repo.List(ctx, organizationID, userID, unreadOnly, 100)
}

func (s *Service) MarkRead(ctx context.Context, organizationID, userID, id string) error {
	if id == "" {
		return apperrors.Validation("id", "is required")
	}
	return s.repo.MarkRead(ctx, organizationID, userID, id)
}

// Delete removes a notification. Used to compensate a failed signup.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
