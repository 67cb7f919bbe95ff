package contacts

import (
	"context"
	"strconv"
	"strings"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/validation"

	"github.com/google/uuid"
)

type Repository interface {
	CreateList(ctx context.Context, l List) error
	GetList(ctx context.Context, organizationID, id string) (List, error)
	ListLists(ctx context.Context, organizationID string) ([]List, error)
	DeleteList(ctx context.Context, organizationID, id string) error
	AddMembers(ctx context.Context, ms []Member) error
	ListMembers(ctx context.Context, organizationID, listID string, limit, offset int) ([]Member, error)
	RemoveMember(ctx context.Context, organizationID, listID, id string) error
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// NormalizePhone strips common separators, keeping a leading +.
func NormalizePhone(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Service) CreateList(ctx context.Context, organizationID string, in ListInput) (List, error) {
	if organizationID == "" {
		return List{}, apperrors.Validation("organization_id", "is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return List{}, err
	}
	l := List{ID: uuid.NewString(), OrganizationID: organizationID, Name: in.Name, Description: in.Description, CreatedAt: s.clock().UTC()}
	if err := s.repo.CreateList(ctx, l); err != nil {
		return List{}, err
	}
	return l, nil
}

func (s *Service) GetList(ctx context.Context, organizationID, id string) (List, error) {
	return s.repo.GetList(ctx, organizationID, id)
}

func (s *Service) ListLists(ctx context.Context, organizationID string) ([]List, error) {
	return s.repo.ListLists(ctx, organizationID)
}

func (s *Service) DeleteList(ctx context.Context, organizationID, id string) error {
	return s.repo.DeleteList(ctx, organizationID, id)
}

func (s *Service) member(organizationID, listID string, in MemberInput) (Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.PhoneNumber = NormalizePhone(in.PhoneNumber)
	if err := validation.Struct(in); err != nil {
		return Member{}, err
	}
	return Member{
		ID:             uuid.NewString(),
		ListID:         listID,
		OrganizationID: organizationID,
		Name:           in.Name,
		PhoneNumber:    in.PhoneNumber,
		Email:          strings.TrimSpace(in.Email),
		CreatedAt:      s.clock().UTC(),
	}, nil
}

func (s *Service) AddMember(ctx context.Context, organizationID, listID string, in MemberInput) (Member, error) {
	if _, err := s.repo.GetList(ctx, organizationID, listID); err != nil {
		return Member{}, err
	}
	m, err := s.member(organizationID, listID, in)
	if err != nil {
		return Member{}, err
	}
	if err := s.repo.AddMembers(ctx, []Member{m}); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Import adds every valid row and reports the rest. Duplicate numbers within the batch are rejected.
func (s *Service) Import(ctx context.Context, organizationID, listID string, in []MemberInput) (ImportResult, error) {
	if _, err := s.repo.GetList(ctx, organizationID, listID); err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Added: []Member{}, Rejected: map[int]string{}}
	seen := map[string]int{}
	for i, row := range in {
		m, err := s.member(organizationID, listID, row)
		if err != nil {
			res.Rejected[i] = err.Error()
			continue
		}
		if first, dup := seen[m.PhoneNumber]; dup {
			res.Rejected[i] = "duplicate of row " + strconv.Itoa(first)
			continue
		}
		seen[m.PhoneNumber] = i
		res.Added = append(res.Added, m)
	}
	if len(res.Added) > 0 {
		if err := s.repo.AddMembers(ctx, res.Added); err != nil {
			return ImportResult{}, err
		}
	}
	if len(res.Rejected) == 0 {
		res.Rejected = nil
	}
	return res, nil
}

func (s *Service) ListMembers(ctx context.Context, organizationID, listID string, limit, offset int) ([]Member, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMembers(ctx, organizationID, listID, limit, offset)
}

func (s *Service) RemoveMember(ctx context.Context, organizationID, listID, id string) error {
	return s.repo.RemoveMember(ctx, organizationID, listID, id)
}
