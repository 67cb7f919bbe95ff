package reporting

import (
	"context"
	"time"

	"voice-dashboard/internal/callqueue"
	"voice-dashboard/internal/calls"
	"voice-dashboard/pkg/utils"
)

// PGRepo reads calls through the calls repository and aggregates the queue in SQL.
type PGRepo struct {
	db    utils.Querier
	calls *calls.PGRepo
}

func NewPGRepo(db utils.Querier) *PGRepo {
	return &PGRepo{db: db, calls: calls.NewPGRepo(db)}
}

func (r *PGRepo) ListCalls(ctx context.Context, organizationID string, from, to time.Time, campaignID string) ([]calls.Call, error) {
	out := make([]calls.Call, 0)
	f := calls.Filter{From: from, To: to, CampaignID: campaignID, Limit: calls.MaxLimit}
	for {
		page, err := r.calls.List(ctx, organizationID, f)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < f.Limit {
			return out, nil
		}
		f.Offset += len(page)
	}
}

func (r *PGRepo) CountQueue(ctx context.Context, organizationID, campaignID string) (map[callqueue.Status]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, count(*) FROM call_queue
		WHERE organization_id = $1 AND ($2 = '' OR campaign_id::text = $2)
		GROUP BY status`, organizationID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[callqueue.Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[callqueue.Status(status)] = n
	}
	return out, rows.Err()
}
