package contacts

import (
	"context"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/pkg/utils"

	"github.com/jackc/pgx/v5"
)

type PGRepo struct {
	db utils.DB
}

func NewPGRepo(db utils.DB) *PGRepo { return &PGRepo{db: db} }

const selectList = `
	SELECT l.id, l.organization_id, l.name, COALESCE(l.description, ''),
	       (SELECT count(*) FROM contact_list_members c WHERE c.contact_list_id = l.id), l.created_at
	FROM contact_lists l`

func scanList(row pgx.Row) (List, error) {
	var l List
	err := row.Scan(&l.ID, &l.OrganizationID, &l.Name, &l.Description, &l.ContactCount, &l.CreatedAt)
	return l, err
}

func (r *PGRepo) CreateList(ctx context.Context, l List) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO contact_lists (id, organization_id, name, description, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`, l.ID, l.OrganizationID, l.Name, l.Description, l.CreatedAt)
	return err
}

func (r *PGRepo) GetList(ctx context.Context, organizationID, id string) (List, error) {
	l, err := scanList(r.db.QueryRow(ctx, selectList+` WHERE l.organization_id = $1 AND l.id = $2`, organizationID, id))
	if utils.IsNoRows(err) {
		return List{}, apperrors.NotFound("contact list", id)
	}
	return l, err
}

func (r *PGRepo) ListLists(ctx context.Context, organizationID string) ([]List, error) {
	rows, err := r.db.Query(ctx, selectList+` WHERE l.organization_id = $1 ORDER BY l.name`, organizationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (List, error) { return scanList(row) })
}

func (r *PGRepo) DeleteList(ctx context.Context, organizationID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contact_lists WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("contact list", id)
	}
	return nil
}

// AddMembers copies the batch in one transaction; a duplicate number aborts it.
func (r *PGRepo) AddMembers(ctx context.Context, ms []Member) error {
	err := utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"contact_list_members"},
			[]string{"id", "contact_list_id", "organization_id", "name", "phone_number", "email", "created_at"},
			pgx.CopyFromSlice(len(ms), func(i int) ([]any, error) {
				m := ms[i]
				var email any
				if m.Email != "" {
					email = m.Email
				}
				return []any{m.ID, m.ListID, m.OrganizationID, m.Name, m.PhoneNumber, email, m.CreatedAt}, nil
			}))
		return err
	})
	if utils.IsUniqueViolation(err) {
		return apperrors.Conflict("contact", "phone number is already on the list")
	}
	return err
}

func (r *PGRepo) ListMembers(ctx context.Context, organizationID, listID string, limit, offset int) ([]Member, error) {
	if _, err := r.GetList(ctx, organizationID, listID); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, contact_list_id, organization_id, name, phone_number, COALESCE(email, ''), created_at
		FROM contact_list_members WHERE organization_id = $1 AND contact_list_id = $2
		ORDER BY created_at, id LIMIT $3 OFFSET $4`, organizationID, listID, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Member, error) {
		var m Member
		err := row.Scan(&m.ID, &m.ListID, &m.OrganizationID, &m.Name, &m.PhoneNumber, &m.Email, &m.CreatedAt)
		return m, err
	})
}

func (r *PGRepo) RemoveMember(ctx context.Context, organizationID, listID, id string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM contact_list_members WHERE organization_id = $1 AND contact_list_id = $2 AND id = $3`, organizationID, listID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("contact", id)
	}
	return nil
}
