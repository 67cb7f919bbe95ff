package agents

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

const selectAgent = `
	SELECT a.id, a.organization_id, a.name, a.type, COALESCE(a.tone, ''), COALESCE(a.language, ''),
	       COALESCE(a.system_prompt, ''), a.status, a.created_at, a.updated_at,
	       v.agent_id, COALESCE(v.voice_id, ''), COALESCE(v.first_message, ''), COALESCE(v.phone_number_id::text, ''),
	       p.id, COALESCE(p.number, ''), COALESCE(p.status, ''), COALESCE(p.organization_id::text, ''), p.created_at
	FROM agents a
	LEFT JOIN voice_agent_configs v ON v.agent_id = a.id
	LEFT JOIN phone_numbers p ON p.id = v.phone_number_id`

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	var typ, status, numStatus string
	var vcAgent, numID *string
	var vc VoiceConfig
	var n PhoneNumber
	var numCreated *time.Time
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Name, &typ, &a.Tone, &a.Language, &a.SystemPrompt, &status, &a.CreatedAt, &a.UpdatedAt,
		&vcAgent, &vc.VoiceID, &vc.FirstMessage, &vc.PhoneNumberID,
		&numID, &n.Number, &numStatus, &n.OrganizationID, &numCreated)
	if err != nil {
		return Agent{}, err
	}
	a.Type, a.Status = Type(typ), Status(status)
	if vcAgent != nil {
		vc.AgentID = *vcAgent
		a.VoiceConfig = &vc
	}
	if numID != nil {
		n.ID = *numID
		n.Status = NumberStatus(numStatus)
		n.AgentID = a.ID
		if numCreated != nil {
			n.CreatedAt = *numCreated
		}
		a.PhoneNumber = &n
	}
	return a, nil
}

func (r *PGRepo) Create(ctx context.Context, a Agent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO agents (id, organization_id, name, type, tone, language, system_prompt, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`,
		a.ID, a.OrganizationID, a.Name, string(a.Type), a.Tone, a.Language, a.SystemPrompt, string(a.Status), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, organizationID, id string) (Agent, error) {
	a, err := scanAgent(r.db.QueryRow(ctx, selectAgent+` WHERE a.organization_id = $1 AND a.id = $2`, organizationID, id))
	if utils.IsNoRows(err) {
		return Agent{}, apperrors.NotFound("agent", id)
	}
	return a, err
}

func (r *PGRepo) List(ctx context.Context, organizationID string, f ListFilter) ([]Agent, error) {
	rows, err := r.db.Query(ctx, selectAgent+`
		WHERE a.organization_id = $1 AND ($2 = '' OR a.type = $2) AND ($3 = '' OR a.status = $3)
		ORDER BY a.created_at DESC`, organizationID, string(f.Type), string(f.Status))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Agent, error) { return scanAgent(row) })
}

func (r *PGRepo) Update(ctx context.Context, a Agent) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE agents SET name = $3, tone = NULLIF($4, ''), language = NULLIF($5, ''), system_prompt = NULLIF($6, ''),
		       status = $7, updated_at = $8
		WHERE organization_id = $1 AND id = $2`,
		a.OrganizationID, a.ID, a.Name, a.Tone, a.Language, a.SystemPrompt, string(a.Status), a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("agent", a.ID)
	}
	return nil
}

// touchAgent locks the agent and bumps updated_at. Voice config and number
// link rows carry no change feed of their own; live agent lists learn about
// them through this UPDATE.
func touchAgent(ctx context.Context, q utils.Querier, organizationID, agentID string) error {
	tag, err := q.Exec(ctx, `UPDATE agents SET updated_at = now() WHERE organization_id = $1 AND id = $2`, organizationID, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("agent", agentID)
	}
	return nil
}

func (r *PGRepo) UpsertVoiceConfig(ctx context.Context, organizationID string, vc VoiceConfig) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := touchAgent(ctx, tx, organizationID, vc.AgentID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO voice_agent_configs (agent_id, voice_id, first_message) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
			ON CONFLICT (agent_id) DO UPDATE SET voice_id = EXCLUDED.voice_id, first_message = EXCLUDED.first_message, updated_at = now()`,
			vc.AgentID, vc.VoiceID, vc.FirstMessage)
		return err
	})
}

// Link rewrites both sides of the agent/number link in one transaction.
func (r *PGRepo) Link(ctx context.Context, organizationID, agentID, numberID string) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := touchAgent(ctx, tx, organizationID, agentID); err != nil {
			return err
		}
		var one int
		err := tx.QueryRow(ctx, `SELECT 1 FROM phone_numbers WHERE organization_id = $1 AND id = $2 FOR UPDATE`, organizationID, numberID).Scan(&one)
		if utils.IsNoRows(err) {
			return apperrors.NotFound("phone number", numberID)
		}
		if err != nil {
			return err
		}

		stmts := []struct {
			sql  string
			args []any
		}{
			// The agent losing the number changes too.
			{`UPDATE agents SET updated_at = now()
			  WHERE id IN (SELECT agent_id FROM voice_agent_configs WHERE phone_number_id = $1 AND agent_id <> $2)`, []any{numberID, agentID}},
			{`UPDATE voice_agent_configs SET phone_number_id = NULL, updated_at = now() WHERE phone_number_id = $1 AND agent_id <> $2`, []any{numberID, agentID}},
			{`UPDATE phone_numbers SET agent_id = NULL, status = 'available' WHERE agent_id = $1 AND id <> $2`, []any{agentID, numberID}},
			{`INSERT INTO voice_agent_configs (agent_id, phone_number_id) VALUES ($1, $2)
			  ON CONFLICT (agent_id) DO UPDATE SET phone_number_id = EXCLUDED.phone_number_id, updated_at = now()`, []any{agentID, numberID}},
			{`UPDATE phone_numbers SET agent_id = $1, status = 'assigned' WHERE id = $2`, []any{agentID, numberID}},
		}
		for _, s := range stmts {
			if _, err := tx.Exec(ctx, s.sql, s.args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PGRepo) Unlink(ctx context.Context, organizationID, agentID string) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := touchAgent(ctx, tx, organizationID, agentID); err != nil {
			return err
		}
		return unlink(ctx, tx, organizationID, agentID)
	})
}

func unlink(ctx context.Context, tx pgx.Tx, organizationID, agentID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE phone_numbers SET agent_id = NULL, status = 'available'
		WHERE organization_id = $1 AND agent_id = $2`, organizationID, agentID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE voice_agent_configs SET phone_number_id = NULL, updated_at = now() WHERE agent_id = $1`, agentID)
	return err
}

const selectNumber = `
	SELECT id, number, status, COALESCE(organization_id::text, ''), COALESCE(agent_id::text, ''), created_at
	FROM phone_numbers`

func scanNumber(row pgx.Row) (PhoneNumber, error) {
	var n PhoneNumber
	var status string
	err := row.Scan(&n.ID, &n.Number, &status, &n.OrganizationID, &n.AgentID, &n.CreatedAt)
	n.Status = NumberStatus(status)
	return n, err
}

func (r *PGRepo) collectNumbers(ctx context.Context, sql string, args ...any) ([]PhoneNumber, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PhoneNumber, error) { return scanNumber(row) })
}

func (r *PGRepo) ListNumbers(ctx context.Context, organizationID string) ([]PhoneNumber, error) {
	return r.collectNumbers(ctx, selectNumber+` WHERE organization_id = $1 ORDER BY number`, organizationID)
}

func (r *PGRepo) ListPool(ctx context.Context) ([]PhoneNumber, error) {
	return r.collectNumbers(ctx, selectNumber+` WHERE organization_id IS NULL AND status = 'available' ORDER BY number`)
}

func (r *PGRepo) GetNumber(ctx context.Context, id string) (PhoneNumber, error) {
	n, err := scanNumber(r.db.QueryRow(ctx, selectNumber+` WHERE id = $1`, id))
	if utils.IsNoRows(err) {
		return PhoneNumber{}, apperrors.NotFound("phone number", id)
	}
	return n, err
}

func (r *PGRepo) ClaimNumber(ctx context.Context, organizationID, numberID string) (PhoneNumber, error) {
	n, err := scanNumber(r.db.QueryRow(ctx, `
		UPDATE phone_numbers SET organization_id = $1
		WHERE id = $2 AND organization_id IS NULL AND status = 'available'
		RETURNING id, number, status, COALESCE(organization_id::text, ''), COALESCE(agent_id::text, ''), created_at`,
		organizationID, numberID))
	if utils.IsNoRows(err) {
		if _, gerr := r.GetNumber(ctx, numberID); gerr != nil {
			return PhoneNumber{}, gerr
		}
		return PhoneNumber{}, apperrors.Conflict("phone number", "number is not in the pool")
	}
	return n, err
}

func (r *PGRepo) ReleaseNumber(ctx context.Context, organizationID, numberID string) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var agentID *string
		err := tx.QueryRow(ctx, `
			SELECT agent_id::text FROM phone_numbers WHERE organization_id = $1 AND id = $2 FOR UPDATE`,
			organizationID, numberID).Scan(&agentID)
		if utils.IsNoRows(err) {
			return apperrors.NotFound("phone number", numberID)
		}
		if err != nil {
			return err
		}
		if agentID != nil {
			if err := touchAgent(ctx, tx, organizationID, *agentID); err != nil {
				return err
			}
			if err := unlink(ctx, tx, organizationID, *agentID); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE phone_numbers SET organization_id = NULL, agent_id = NULL, status = 'available' WHERE id = $1`, numberID)
		return err
	})
}
