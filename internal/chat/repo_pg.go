package chat

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

const selectSession = `
	SELECT id, organization_id, agent_id, customer_phone, COALESCE(customer_name, ''), status,
	       COALESCE(assigned_to::text, ''), last_message_at, created_at, updated_at
	FROM chat_sessions`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	var status string
	err := row.Scan(&s.ID, &s.OrganizationID, &s.AgentID, &s.CustomerPhone, &s.CustomerName, &status,
		&s.AssignedTo, &s.LastMessageAt, &s.CreatedAt, &s.UpdatedAt)
	s.Status = SessionStatus(status)
	return s, err
}

func (r *PGRepo) CreateSession(ctx context.Context, s Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_sessions (id, organization_id, agent_id, customer_phone, customer_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		s.ID, s.OrganizationID, s.AgentID, s.CustomerPhone, s.CustomerName, string(s.Status), s.CreatedAt, s.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return apperrors.Conflict("chat session", "exists")
	}
	return err
}

func (r *PGRepo) GetSession(ctx context.Context, organizationID, id string) (Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, selectSession+`
		WHERE organization_id = $1 AND id = $2`, organizationID, id))
	if utils.IsNoRows(err) {
		return Session{}, apperrors.NotFound("chat session", id)
	}
	return s, err
}

func (r *PGRepo) ListSessions(ctx context.Context, organizationID string, f ListFilter) ([]Session, error) {
	rows, err := r.db.Query(ctx, selectSession+`
		WHERE organization_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR agent_id::text = $3)
		  AND ($4 = '' OR assigned_to::text = $4)
		ORDER BY updated_at DESC`, organizationID, string(f.Status), f.AgentID, f.AssignedTo)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Session, error) { return scanSession(row) })
}

func (r *PGRepo) UpdateSessionStatus(ctx context.Context, organizationID, id string, from, next SessionStatus, assignedTo string, at time.Time) (Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `
		UPDATE chat_sessions
		SET status = $4, assigned_to = NULLIF($5, '')::uuid, updated_at = $6
		WHERE organization_id = $1 AND id = $2 AND status = $3
		RETURNING id, organization_id, agent_id, customer_phone, COALESCE(customer_name, ''), status,
		          COALESCE(assigned_to::text, ''), last_message_at, created_at, updated_at`,
		organizationID, id, string(from), string(next), assignedTo, at))
	if !utils.IsNoRows(err) {
		return s, err
	}
	// Either the session is gone or someone moved it first.
	cur, gerr := r.GetSession(ctx, organizationID, id)
	if gerr != nil {
		return Session{}, gerr
	}
	return Session{}, apperrors.InvalidTransition("chat session", string(cur.Status), string(next))
}

func (r *PGRepo) AppendMessage(ctx context.Context, m Message) error {
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE chat_sessions SET last_message_at = $3, updated_at = $3
			WHERE organization_id = $1 AND id = $2`, m.OrganizationID, m.SessionID, m.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("chat session", m.SessionID)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO chat_messages (id, session_id, organization_id, sender, sender_id, message_type, content, media_url, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, NULLIF($8, ''), $9)`,
			m.ID, m.SessionID, m.OrganizationID, string(m.Sender), m.SenderID, string(m.Type), m.Content, m.MediaURL, m.CreatedAt)
		return err
	})
}

func (r *PGRepo) ListMessages(ctx context.Context, organizationID, sessionID string) ([]Message, error) {
	if _, err := r.GetSession(ctx, organizationID, sessionID); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, organization_id, sender, COALESCE(sender_id::text, ''), message_type,
		       content, COALESCE(media_url, ''), created_at
		FROM chat_messages
		WHERE organization_id = $1 AND session_id = $2
		ORDER BY created_at, id`, organizationID, sessionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		var sender, typ string
		err := row.Scan(&m.ID, &m.SessionID, &m.OrganizationID, &sender, &m.SenderID, &typ, &m.Content, &m.MediaURL, &m.CreatedAt)
		m.Sender, m.Type = Sender(sender), MessageType(typ)
		return m, err
	})
}
