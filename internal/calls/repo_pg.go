package calls

import (
	"context"
	"fmt"
	"strings"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/pkg/utils"

	"github.com/jackc/pgx/v5"
)

type PGRepo struct {
	db utils.Querier
}

func NewPGRepo(db utils.Querier) *PGRepo { return &PGRepo{db: db} }

const selectCall = `
	SELECT id, organization_id, COALESCE(campaign_id::text, ''), COALESCE(agent_id::text, ''), call_type, status,
	       COALESCE(outcome, ''), COALESCE(from_number, ''), COALESCE(to_number, ''), COALESCE(duration_seconds, 0),
	       sentiment_score, COALESCE(sentiment_label, ''), COALESCE(recording_url, ''), COALESCE(transcript, ''),
	       started_at, ended_at, created_at, updated_at
	FROM calls`

func scanCall(row pgx.Row) (Call, error) {
	var c Call
	var typ, status string
	err := row.Scan(&c.ID, &c.OrganizationID, &c.CampaignID, &c.AgentID, &typ, &status,
		&c.Outcome, &c.FromNumber, &c.ToNumber, &c.DurationSeconds,
		&c.SentimentScore, &c.SentimentLabel, &c.RecordingURL, &c.Transcript,
		&c.StartedAt, &c.EndedAt, &c.CreatedAt, &c.UpdatedAt)
	c.CallType, c.Status = CallType(typ), Status(status)
	return c, err
}

func (r *PGRepo) List(ctx context.Context, organizationID string, f Filter) ([]Call, error) {
	where := []string{"organization_id = $1"}
	args := []any{organizationID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CampaignID != "" {
		add("campaign_id = $%d", f.CampaignID)
	}
	if f.AgentID != "" {
		add("agent_id = $%d", f.AgentID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.CallType != "" {
		add("call_type = $%d", string(f.CallType))
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	args = append(args, f.Limit, f.Offset)

	sql := selectCall + " WHERE " + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Call, error) { return scanCall(row) })
}

func (r *PGRepo) Get(ctx context.Context, organizationID, id string) (Call, error) {
	c, err := scanCall(r.db.QueryRow(ctx, selectCall+` WHERE organization_id = $1 AND id = $2`, organizationID, id))
	if utils.IsNoRows(err) {
		return Call{}, apperrors.NotFound("call", id)
	}
	return c, err
}
