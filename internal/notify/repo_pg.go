package notify

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

func (r *PGRepo) Insert(ctx context.Context, n Notification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, organization_id, user_id, type, title, message, read, created_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.OrganizationID, n.UserID, n.Level, n.Title, n.Message, n.Read, n.CreatedAt)
	return err
}

func (r *PGRepo) List(ctx context.Context, organizationID, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(organization_id::text, ''), user_id, type, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		  AND ($2 = '' OR organization_id::text = $2)
		  AND (NOT $3 OR read = false)
		ORDER BY created_at DESC
		LIMIT $4`, userID, organizationID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
		var n Notification
		err := row.Scan(&n.ID, &n.OrganizationID, &n.UserID, &n.Level, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
		return n, err
	})
}

func (r *PGRepo) MarkRead(ctx context.Context, organizationID, userID, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE id = $1 AND user_id = $2 AND ($3 = '' OR organization_id::text = $3)`, id, userID, organizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("notification", id)
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	return err
}
