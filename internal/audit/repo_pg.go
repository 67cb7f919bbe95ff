package audit

import (
	"context"
	"fmt"
	"strings"

	"voice-dashboard/pkg/utils"

	"github.com/jackc/pgx/v5"
)

type PGRepo struct {
	db utils.Querier
}

func NewPGRepo(db utils.Querier) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Append(ctx context.Context, e Event) error {
	var details any
	if len(e.Details) > 0 {
		details = []byte(e.Details)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO activity_logs (id, organization_id, user_id, action, entity_type, entity_id, ip_address, details, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)`,
		e.ID, e.OrganizationID, e.UserID, string(e.Action), e.EntityType, e.EntityID, e.IPAddress, details, e.CreatedAt)
	return err
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Event, error) {
	where := []string{"TRUE"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OrganizationID != "" {
		add("organization_id = $%d", f.OrganizationID)
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.EntityType != "" {
		add("entity_type = $%d", f.EntityType)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	args = append(args, f.Limit)

	rows, err := r.db.Query(ctx, `
		SELECT id, organization_id, COALESCE(user_id::text, ''), action, COALESCE(entity_type, ''),
		       COALESCE(entity_id, ''), COALESCE(ip_address, ''), details, created_at
		FROM activity_logs
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		var action string
		var details []byte
		err := row.Scan(&e.ID, &e.OrganizationID, &e.UserID, &action, &e.EntityType, &e.EntityID, &e.IPAddress, &details, &e.CreatedAt)
		e.Action = Action(action)
		e.Details = details
		return e, err
	})
}
