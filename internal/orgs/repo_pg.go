package orgs

import (
	"context"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/pkg/utils"

	"github.com/jackc/pgx/v5"
)

type PGRepo struct {
	db utils.Querier
}

func NewPGRepo(db utils.Querier) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) CreateOrganization(ctx context.Context, o Organization) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`, o.ID, o.Name, o.Slug, o.CreatedAt, o.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return apperrors.Conflict("organization", "slug taken")
	}
	return err
}

func (r *PGRepo) GetOrganization(ctx context.Context, id string) (Organization, error) {
	var o Organization
	err := r.db.QueryRow(ctx, `
		SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt)
	if utils.IsNoRows(err) {
		return Organization{}, apperrors.NotFound("organization", id)
	}
	return o, err
}

func (r *PGRepo) ListOrganizations(ctx context.Context, limit, offset int) ([]OrganizationSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.name, o.slug, o.created_at, o.updated_at,
		       (SELECT count(*) FROM profiles p WHERE p.organization_id = o.id),
		       (SELECT count(*) FROM campaigns c WHERE c.organization_id = o.id AND c.deleted_at IS NULL),
		       (SELECT count(*) FROM agents a WHERE a.organization_id = o.id)
		FROM organizations o
		ORDER BY o.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrganizationSummary, error) {
		var s OrganizationSummary
		err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt, &s.MemberCount, &s.CampaignCount, &s.AgentCount)
		return s, err
	})
}

func (r *PGRepo) DeleteOrganization(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}

func (r *PGRepo) CreateProfile(ctx context.Context, p Profile) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, organization_id, email, full_name, created_at)
		VALUES ($1, $2, $3, $4, $5)`, p.ID, p.OrganizationID, p.Email, p.FullName, p.CreatedAt)
	if utils.IsUniqueViolation(err) {
		return apperrors.Conflict("profile", "exists")
	}
	return err
}

func (r *PGRepo) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, `
		SELECT id, organization_id, email, COALESCE(full_name, ''), created_at FROM profiles WHERE id = $1`, userID).
		Scan(&p.ID, &p.OrganizationID, &p.Email, &p.FullName, &p.CreatedAt)
	if utils.IsNoRows(err) {
		return Profile{}, apperrors.NotFound("profile", userID)
	}
	return p, err
}

func (r *PGRepo) DeleteProfile(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	return err
}

func (r *PGRepo) AssignRole(ctx context.Context, ur UserRole) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_roles (id, user_id, organization_id, role, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)`, ur.ID, ur.UserID, ur.OrganizationID, ur.Role, ur.CreatedAt)
	if utils.IsUniqueViolation(err) {
		return apperrors.Conflict("user role", "already assigned")
	}
	return err
}

func (r *PGRepo) RemoveRole(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE id = $1`, id)
	return err
}

func (r *PGRepo) ListRoles(ctx context.Context, userID string) ([]UserRole, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, COALESCE(organization_id::text, ''), role, created_at
		FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserRole, error) {
		var ur UserRole
		err := row.Scan(&ur.ID, &ur.UserID, &ur.OrganizationID, &ur.Role, &ur.CreatedAt)
		return ur, err
	})
}
