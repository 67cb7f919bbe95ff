package calls

import (
	"context"

	"voice-dashboard/internal/apperrors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

type Repository interface {
	List(ctx context.Context, organizationID string, f Filter) ([]Call, error)
	Get(ctx context.Context, organizationID, id string) (Call, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// List returns calls newest first.
func (s *Service) List(ctx context.Context, organizationID string, f Filter) ([]Call, error) {
	if organizationID == "" {
		return nil, apperrors.Validation("organization_id", "is required")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validation("status", "unknown status "+string(f.Status))
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return nil, apperrors.Validation("to", "must be after from")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, organizationID, f)
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (Call, error) {
	return s.repo.Get(ctx, organizationID, id)
}
