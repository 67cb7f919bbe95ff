package callqueue

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

const selectItem = `
	SELECT id, organization_id, COALESCE(campaign_id::text, ''), COALESCE(contact_id::text, ''), phone_number,
	       status, source, scheduled_at, retry_count, COALESCE(last_error, ''), created_at, updated_at
	FROM call_queue`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	var status, source string
	err := row.Scan(&it.ID, &it.OrganizationID, &it.CampaignID, &it.ContactID, &it.PhoneNumber,
		&status, &source, &it.ScheduledAt, &it.RetryCount, &it.LastError, &it.CreatedAt, &it.UpdatedAt)
	it.Status, it.Source = Status(status), Source(source)
	return it, err
}

func (r *PGRepo) Create(ctx context.Context, it Item) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO call_queue (id, organization_id, campaign_id, contact_id, phone_number, status, source,
		                        scheduled_at, retry_count, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11)`,
		it.ID, it.OrganizationID, it.CampaignID, it.ContactID, it.PhoneNumber, string(it.Status), string(it.Source),
		it.ScheduledAt, it.RetryCount, it.CreatedAt, it.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, organizationID, id string) (Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx, selectItem+` WHERE organization_id = $1 AND id = $2`, organizationID, id))
	if utils.IsNoRows(err) {
		return Item{}, apperrors.NotFound("call queue item", id)
	}
	return it, err
}

func (r *PGRepo) List(ctx context.Context, organizationID string, f Filter) ([]Item, error) {
	rows, err := r.db.Query(ctx, selectItem+`
		WHERE organization_id = $1 AND ($2 = '' OR status = $2) AND ($3 = '' OR campaign_id::text = $3)
		ORDER BY scheduled_at LIMIT $4`, organizationID, string(f.Status), f.CampaignID, f.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) { return scanItem(row) })
}

func (r *PGRepo) CompareAndSet(ctx context.Context, from Status, next Item) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE call_queue
		SET status = $4, retry_count = $5, last_error = NULLIF($6, ''), scheduled_at = $7, updated_at = $8
		WHERE organization_id = $1 AND id = $2 AND status = $3`,
		next.OrganizationID, next.ID, string(from), string(next.Status), next.RetryCount, next.LastError, next.ScheduledAt, next.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, next.OrganizationID, next.ID); err != nil {
			return err
		}
		return apperrors.Conflict("call queue item", "status changed concurrently")
	}
	return nil
}
