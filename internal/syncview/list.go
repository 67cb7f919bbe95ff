// Package syncview keeps an in-memory list in step with a table: it loads a
// snapshot, then applies row changes from the realtime registry.
package syncview

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"voice-dashboard/internal/metrics"
	"voice-dashboard/internal/notify"
	"voice-dashboard/internal/realtime"
)

// Subscriber is the registry surface a list needs.
type Subscriber interface {
	Subscribe(ctx context.Context, key realtime.ChannelKey) (*realtime.Subscription, error)
}

// Config describes one synchronized list.
type Config[T any] struct {
	// Entity names the list in logs, metrics and notifications.
	Entity string
	Key    realtime.ChannelKey
	Fetch  func(ctx context.Context) ([]T, error)
	ID     func(T) string

	// Decode turns a changed row into T. Defaults to json.Unmarshal.
	Decode func(raw json.RawMessage) (T, error)
	// Keep drops rows that no longer belong after an UPDATE (soft delete, status filters).
	Keep func(T) bool
	// RefetchOnUpdate reloads on UPDATE instead of patching. Set it for rows
	// whose fetched form carries joined data the change record lacks.
	RefetchOnUpdate bool

	Notifier notify.Notifier
	Log      *slog.Logger
}

// State is a point-in-time copy of the list.
type State[T any] struct {
	Data      []T
	IsLoading bool
	Err       error
}

// List is safe for concurrent use. Start it once; cancel its context to stop.
type List[T any] struct {
	cfg Config[T]

	mu        sync.RWMutex
	data      []T
	loading   bool
	err       error
	ctx       context.Context
	fetchSeq  uint64
	updates   chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
}

func New[T any](cfg Config[T]) *List[T] {
	if cfg.Decode == nil {
		cfg.Decode = func(raw json.RawMessage) (T, error) {
			var v T
			err := json.Unmarshal(raw, &v)
			return v, err
		}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	cfg.Log = cfg.Log.With("component", "syncview", "entity", cfg.Entity)
	return &List[T]{
		cfg:     cfg,
		updates: make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Start loads the snapshot and subscribes for changes. It returns once the
// subscription is open; change handling continues until ctx is done.
func (l *List[T]) Start(ctx context.Context, sub Subscriber) error {
	err := errors.New("syncview: already started")
	l.startOnce.Do(func() {
		err = l.start(ctx, sub)
	})
	return err
}

func (l *List[T]) start(ctx context.Context, sub Subscriber) error {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()

	s, err := sub.Subscribe(ctx, l.cfg.Key)
	if err != nil {
		close(l.stopped)
		return err
	}
	// Subscribe before the snapshot so nothing committed in between is missed.
	l.Refetch(ctx)

	go l.run(ctx, s)
	return nil
}

// State returns a copy of the current data.
func (l *List[T]) State() State[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.data))
	copy(out, l.data)
	return State[T]{Data: out, IsLoading: l.loading, Err: l.err}
}

// Updates fires (coalesced) after every state change.
func (l *List[T]) Updates() <-chan struct{} { return l.updates }

// Done is closed once change handling has stopped.
func (l *List[T]) Done() <-chan struct{} { return l.stopped }

// Refetch reloads the snapshot. It reports whether the fetch succeeded and
// was applied. A failed fetch keeps the previous data and records Err.
func (l *List[T]) Refetch(ctx context.Context) bool {
	l.mu.Lock()
	l.fetchSeq++
	seq := l.fetchSeq
	l.loading = true
	owner := l.ctx
	l.mu.Unlock()
	l.changed()

	start := time.Now()
	rows, err := l.cfg.Fetch(ctx)
	metrics.FetchDuration.WithLabelValues(l.cfg.Entity).Observe(time.Since(start).Seconds())

	l.mu.Lock()
	// Results landing after the owner is gone, or behind a newer fetch, are discarded.
	if (owner != nil && owner.Err() != nil) || ctx.Err() != nil || seq != l.fetchSeq {
		if seq == l.fetchSeq {
			l.loading = false
		}
		l.mu.Unlock()
		return false
	}
	l.loading = false
	if err != nil {
		l.err = err
		l.mu.Unlock()
		l.cfg.Log.Warn("fetch failed", "err", err)
		if l.cfg.Notifier != nil {
			l.cfg.Notifier.Notify(ctx, notify.Error("Failed to load "+l.cfg.Entity, err.Error()))
		}
		l.changed()
		return false
	}
	l.data = l.filter(rows)
	l.err = nil
	l.mu.Unlock()
	l.changed()
	return true
}

func (l *List[T]) filter(rows []T) []T {
	if l.cfg.Keep == nil {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if l.cfg.Keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (l *List[T]) run(ctx context.Context, s *realtime.Subscription) {
	defer close(l.stopped)
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-s.Events():
			if !ok {
				return
			}
			l.apply(ctx, c)
		case _, ok := <-s.Resync():
			if !ok {
				return
			}
			l.Refetch(ctx)
		}
	}
}

// apply folds one change into the list.
func (l *List[T]) apply(ctx context.Context, c realtime.Change) {
	switch c.Type {
	case realtime.Insert:
		// Inserts carry no joined columns; reload instead of merging.
		l.Refetch(ctx)
	case realtime.Update:
		if l.cfg.RefetchOnUpdate {
			l.Refetch(ctx)
			return
		}
		v, err := l.cfg.Decode(c.Record)
		if err != nil {
			l.cfg.Log.Warn("undecodable update, refetching", "err", err)
			l.Refetch(ctx)
			return
		}
		l.patch(v)
	case realtime.Delete:
		l.remove(c.RecordID())
	}
}

func (l *List[T]) patch(v T) {
	id := l.cfg.ID(v)
	keep := l.cfg.Keep == nil || l.cfg.Keep(v)

	l.mu.Lock()
	idx := -1
	for i := range l.data {
		if l.cfg.ID(l.data[i]) == id {
			idx = i
			break
		}
	}
	switch {
	case idx < 0:
		// Not in our snapshot; nothing to patch.
		l.mu.Unlock()
		return
	case keep:
		next := make([]T, len(l.data))
		copy(next, l.data)
		next[idx] = v
		l.data = next
	default:
		l.data = without(l.data, idx)
	}
	l.mu.Unlock()
	l.changed()
}

func (l *List[T]) remove(id string) {
	if id == "" {
		return
	}
	l.mu.Lock()
	for i := range l.data {
		if l.cfg.ID(l.data[i]) == id {
			l.data = without(l.data, i)
			l.mu.Unlock()
			l.changed()
			return
		}
	}
	l.mu.Unlock()
}

func without[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func (l *List[T]) changed() {
	select {
	case l.updates <- struct{}{}:
	default:
	}
}
