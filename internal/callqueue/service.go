package callqueue

import (
	"context"
	"log/slog"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/metrics"
	"voice-dashboard/internal/validation"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, it Item) error
	Get(ctx context.Context, organizationID, id string) (Item, error)
	List(ctx context.Context, organizationID string, f Filter) ([]Item, error)
	// CompareAndSet stores next only if the row is still in status from.
	CompareAndSet(ctx context.Context, from Status, next Item) error
}

// Slots bounds concurrent processing per campaign. Each item holds its own
// slot, so releasing an item that never acquired one changes nothing.
// *utils.ConcurrencyCap satisfies it.
type Slots interface {
	Acquire(ctx context.Context, key, holder string, limit int) (bool, error)
	Release(ctx context.Context, key, holder string) (bool, error)
}

// LimitFunc returns the processing concurrency for a campaign.
type LimitFunc func(ctx context.Context, organizationID, campaignID string) (int, error)

type Service struct {
	repo  Repository
	slots Slots
	limit LimitFunc
	log   *slog.Logger
	clock func() time.Time
}

// NewService wires the queue. slots and limit may be nil to run uncapped.
func NewService(repo Repository, slots Slots, limit LimitFunc, log *slog.Logger) *Service {
	return &Service{repo: repo, slots: slots, limit: limit, log: log.With("component", "callqueue"), clock: time.Now}
}

func slotKey(it Item) string { return it.OrganizationID + ":" + it.CampaignID }

func (s *Service) Enqueue(ctx context.Context, organizationID string, in EnqueueInput) (Item, error) {
	if organizationID == "" {
		return Item{}, apperrors.Validation("organization_id", "is required")
	}
	if err := validation.Struct(in); err != nil {
		return Item{}, err
	}
	now := s.clock().UTC()
	it := Item{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		CampaignID:     in.CampaignID,
		ContactID:      in.ContactID,
		PhoneNumber:    in.PhoneNumber,
		Status:         StatusPending,
		Source:         in.Source,
		ScheduledAt:    in.ScheduledAt.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if it.Source == "" {
		it.Source = SourceCampaign
	}
	if it.ScheduledAt.IsZero() {
		it.ScheduledAt = now
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (Item, error) {
	return s.repo.Get(ctx, organizationID, id)
}

func (s *Service) List(ctx context.Context, organizationID string, f Filter) ([]Item, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validation("status", "unknown status "+string(f.Status))
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.repo.List(ctx, organizationID, f)
}

// Transition moves an item forward. lastError is recorded on failed.
func (s *Service) Transition(ctx context.Context, organizationID, id string, next Status, lastError string) (Item, error) {
	if !next.Valid() {
		return Item{}, apperrors.Validation("status", "unknown status "+string(next))
	}
	it, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return Item{}, err
	}
	if !it.Status.CanTransitionTo(next) {
		return Item{}, apperrors.InvalidTransition("call queue item", string(it.Status), string(next))
	}

	acquired := false
	if next == StatusProcessing {
		if acquired, err = s.acquire(ctx, it); err != nil {
			return Item{}, err
		}
	}

	from := it.Status
	it.Status = next
	it.UpdatedAt = s.clock().UTC()
	if next == StatusFailed {
		it.LastError = lastError
	}
	if err := s.repo.CompareAndSet(ctx, from, it); err != nil {
		if acquired {
			s.release(ctx, it)
		}
		return Item{}, err
	}
	if from == StatusProcessing {
		s.release(ctx, it)
	}
	metrics.QueueTransitions.WithLabelValues(string(from), string(next)).Inc()
	return it, nil
}

func (s *Service) Cancel(ctx context.Context, organizationID, id string) (Item, error) {
	return s.Transition(ctx, organizationID, id, StatusCancelled, "")
}

// Retry resets a failed or cancelled item to pending and bumps retry_count by one.
func (s *Service) Retry(ctx context.Context, organizationID, id string) (Item, error) {
	it, err := s.repo.Get(ctx, organizationID, id)
	if err != nil {
		return Item{}, err
	}
	if !it.Status.Retryable() {
		return Item{}, apperrors.InvalidTransition("call queue item", string(it.Status), string(StatusPending))
	}
	from := it.Status
	now := s.clock().UTC()
	it.Status = StatusPending
	it.RetryCount++
	it.ScheduledAt = now
	it.UpdatedAt = now
	if err := s.repo.CompareAndSet(ctx, from, it); err != nil {
		return Item{}, err
	}
	metrics.QueueTransitions.WithLabelValues(string(from), string(StatusPending)).Inc()
	return it, nil
}

// acquire reports whether a slot was taken. Items without a campaign are not capped.
func (s *Service) acquire(ctx context.Context, it Item) (bool, error) {
	if s.slots == nil || s.limit == nil || it.CampaignID == "" {
		return false, nil
	}
	limit, err := s.limit(ctx, it.OrganizationID, it.CampaignID)
	if err != nil {
		return false, err
	}
	if limit <= 0 {
		return false, nil
	}
	ok, err := s.slots.Acquire(ctx, slotKey(it), it.ID, limit)
	if err != nil {
		return false, apperrors.Unavailable("redis", err)
	}
	if !ok {
		return false, apperrors.Conflict("call queue item", "campaign concurrency limit reached")
	}
	return true, nil
}

func (s *Service) release(ctx context.Context, it Item) {
	if s.slots == nil || it.CampaignID == "" {
		return
	}
	held, err := s.slots.Release(context.WithoutCancel(ctx), slotKey(it), it.ID)
	if err != nil {
		s.log.Warn("slot release failed", "item_id", it.ID, "campaign_id", it.CampaignID, "err", err)
		return
	}
	if !held {
		s.log.Debug("no slot held", "item_id", it.ID, "campaign_id", it.CampaignID)
	}
}
