package campaigns

import (
	"context"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/pkg/utils"

	"github.com/jackc/pgx/v5"
)

type PGRepo struct {
	db utils.DB
}

func NewPGRepo(db utils.DB) *PGRepo { return &PGRepo{db: db} }

const selectCampaign = `
	SELECT id, organization_id, name, COALESCE(description, ''), status, concurrency, created_at, updated_at, deleted_at
	FROM campaigns`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	var status string
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Description, &status, &c.Concurrency, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	c.Status = Status(status)
	return c, err
}

// Create inserts the campaign together with its agent and contact list links.
func (r *PGRepo) Create(ctx context.Context, c Campaign) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO campaigns (id, organization_id, name, description, status, concurrency, created_at, updated_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)`,
			c.ID, c.OrganizationID, c.Name, c.Description, string(c.Status), c.Concurrency, c.CreatedAt, c.UpdatedAt); err != nil {
			return err
		}
		if err := insertAgents(ctx, tx, c.OrganizationID, c.ID, c.Agents); err != nil {
			return err
		}
		ids := make([]string, 0, len(c.ContactLists))
		for _, l := range c.ContactLists {
			ids = append(ids, l.ID)
		}
		return insertContactLists(ctx, tx, c.OrganizationID, c.ID, ids)
	})
}

func (r *PGRepo) Get(ctx context.Context, organizationID, id string) (Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, selectCampaign+`
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`, organizationID, id))
	if utils.IsNoRows(err) {
		return Campaign{}, apperrors.NotFound("campaign", id)
	}
	if err != nil {
		return Campaign{}, err
	}
	if err := r.loadLinks(ctx, []*Campaign{&c}); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (r *PGRepo) List(ctx context.Context, organizationID string, f ListFilter) ([]Campaign, error) {
	rows, err := r.db.Query(ctx, selectCampaign+`
		WHERE organization_id = $1
		  AND ($2 OR deleted_at IS NULL)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC`, organizationID, f.IncludeDeleted, string(f.Status))
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Campaign, error) { return scanCampaign(row) })
	if err != nil {
		return nil, err
	}
	ptrs := make([]*Campaign, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	return out, r.loadLinks(ctx, ptrs)
}

// loadLinks fills agents and contact lists for cs with two queries.
func (r *PGRepo) loadLinks(ctx context.Context, cs []*Campaign) error {
	if len(cs) == 0 {
		return nil
	}
	byID := make(map[string]*Campaign, len(cs))
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		c.Agents, c.ContactLists = []AgentLink{}, []ContactListRef{}
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT ca.campaign_id, ca.agent_id, COALESCE(a.name, ''), ca.is_primary
		FROM campaign_agents ca LEFT JOIN agents a ON a.id = ca.agent_id
		WHERE ca.campaign_id = ANY($1)
		ORDER BY ca.is_primary DESC, ca.created_at`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var cid string
		var l AgentLink
		if err := rows.Scan(&cid, &l.AgentID, &l.Name, &l.IsPrimary); err != nil {
			rows.Close()
			return err
		}
		byID[cid].Agents = append(byID[cid].Agents, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT cc.campaign_id, l.id, l.name,
		       (SELECT count(*) FROM contact_list_members m WHERE m.contact_list_id = l.id)
		FROM campaign_contact_lists cc JOIN contact_lists l ON l.id = cc.contact_list_id
		WHERE cc.campaign_id = ANY($1)
		ORDER BY l.name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid string
		var l ContactListRef
		if err := rows.Scan(&cid, &l.ID, &l.Name, &l.ContactCount); err != nil {
			return err
		}
		byID[cid].ContactLists = append(byID[cid].ContactLists, l)
	}
	return rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, c Campaign) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns SET name = $3, description = NULLIF($4, ''), status = $5, concurrency = $6, updated_at = $7
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`,
		c.OrganizationID, c.ID, c.Name, c.Description, string(c.Status), c.Concurrency, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", c.ID)
	}
	return nil
}

// ReplaceAgents swaps the link set in one transaction so readers never see
// two primaries.
func (r *PGRepo) ReplaceAgents(ctx context.Context, organizationID, id string, links []AgentLink) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := touchCampaign(ctx, tx, organizationID, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM campaign_agents WHERE campaign_id = $1`, id); err != nil {
			return err
		}
		return insertAgents(ctx, tx, organizationID, id, links)
	})
}

func (r *PGRepo) ReplaceContactLists(ctx context.Context, organizationID, id string, listIDs []string) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := touchCampaign(ctx, tx, organizationID, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM campaign_contact_lists WHERE campaign_id = $1`, id); err != nil {
			return err
		}
		return insertContactLists(ctx, tx, organizationID, id, listIDs)
	})
}

// insertAgents links agents of organizationID only. An id from another
// organization inserts nothing and is reported as invalid.
func insertAgents(ctx context.Context, q utils.Querier, organizationID, id string, links []AgentLink) error {
	for _, l := range links {
		tag, err := q.Exec(ctx, `
			INSERT INTO campaign_agents (campaign_id, agent_id, is_primary)
			SELECT $1, a.id, $3 FROM agents a WHERE a.id = $2 AND a.organization_id = $4`,
			id, l.AgentID, l.IsPrimary, organizationID)
		if err := linkErr(tag.RowsAffected(), err, "agent_ids", "unknown agent "+l.AgentID); err != nil {
			return err
		}
	}
	return nil
}

func insertContactLists(ctx context.Context, q utils.Querier, organizationID, id string, listIDs []string) error {
	for _, lid := range listIDs {
		tag, err := q.Exec(ctx, `
			INSERT INTO campaign_contact_lists (campaign_id, contact_list_id)
			SELECT $1, l.id FROM contact_lists l WHERE l.id = $2 AND l.organization_id = $3`,
			id, lid, organizationID)
		if err := linkErr(tag.RowsAffected(), err, "contact_list_ids", "unknown contact list "+lid); err != nil {
			return err
		}
	}
	return nil
}

func linkErr(affected int64, err error, field, msg string) error {
	if utils.IsForeignKeyViolation(err) || (err == nil && affected == 0) {
		return apperrors.Validation(field, msg)
	}
	return err
}

// touchCampaign locks the campaign and bumps updated_at, so link changes
// reach live lists as an UPDATE of the campaign row.
func touchCampaign(ctx context.Context, q utils.Querier, organizationID, id string) error {
	tag, err := q.Exec(ctx, `
		UPDATE campaigns SET updated_at = now() WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`,
		organizationID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", id)
	}
	return nil
}

func (r *PGRepo) SoftDelete(ctx context.Context, organizationID, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns SET deleted_at = $3, updated_at = $3
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`, organizationID, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", id)
	}
	return nil
}
