package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultScopes are the columns that get their own filtered topic.
var DefaultScopes = []string{"organization_id", "session_id", "campaign_id"}

// Acquirer hands out dedicated connections. *pgxpool.Pool satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
}

// PGBridge listens on a Postgres NOTIFY channel fed by the notify_row_change
// trigger and republishes each change on the transport.
type PGBridge struct {
	pool      Acquirer
	channel   string
	transport Transport
	scopes    []string
	log       *slog.Logger

	newBackOff func() backoff.BackOff
}

func NewPGBridge(pool Acquirer, channel string, t Transport, log *slog.Logger) *PGBridge {
	return &PGBridge{
		pool:      pool,
		channel:   channel,
		transport: t,
		scopes:    DefaultScopes,
		log:       log.With("component", "realtime.pgbridge", "channel", channel),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run blocks until ctx is done, reconnecting with backoff when the listening
// connection fails.
func (b *PGBridge) Run(ctx context.Context) error {
	op := func() error {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		b.log.Warn("listener failed, reconnecting", "err", err, "retry_in", wait)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(b.newBackOff(), ctx), notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *PGBridge) listen(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	// A connection that has run LISTEN must not go back to the pool.
	defer func() {
		_ = conn.Conn().Close(context.Background())
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	b.log.Info("listening")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := b.Handle(ctx, []byte(n.Payload)); err != nil {
			b.log.Warn("dropping notification", "err", err)
		}
	}
}

// Handle decodes one notification payload and publishes it on every topic it belongs to.
func (b *PGBridge) Handle(ctx context.Context, payload []byte) error {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if c.Table == "" || !c.Type.Valid() {
		return fmt.Errorf("invalid change: table=%q type=%q", c.Table, c.Type)
	}
	if c.CommitTimestamp.IsZero() {
		c.CommitTimestamp = time.Now().UTC()
	}
	enc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	for _, topic := range TopicsFor(c, b.scopes) {
		if err := b.transport.Publish(ctx, topic, enc); err != nil {
			return err
		}
	}
	return nil
}
