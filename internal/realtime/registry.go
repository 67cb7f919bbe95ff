package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"voice-dashboard/internal/metrics"

	"github.com/cenkalti/backoff/v4"
)

// ErrRegistryClosed is returned by Subscribe after Close.
var ErrRegistryClosed = errors.New("realtime: registry closed")

type RegistryOptions struct {
	// Buffer is the per-subscriber event buffer. Defaults to 64.
	Buffer int
	// NewBackOff builds the resubscribe policy. Defaults to unbounded exponential backoff.
	NewBackOff func() backoff.BackOff
}

// Registry shares one upstream subscription per ChannelKey among all local
// subscribers. Subscriptions are reference counted; the upstream closes when
// the last subscriber leaves.
type Registry struct {
	transport  Transport
	log        *slog.Logger
	buffer     int
	newBackOff func() backoff.BackOff

	mu       sync.Mutex
	channels map[ChannelKey]*upstream
	closed   bool
}

func NewRegistry(t Transport, log *slog.Logger, opts RegistryOptions) *Registry {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		}
	}
	return &Registry{
		transport:  t,
		log:        log.With("component", "realtime.registry"),
		buffer:     opts.Buffer,
		newBackOff: opts.NewBackOff,
		channels:   map[ChannelKey]*upstream{},
	}
}

type upstream struct {
	key    ChannelKey
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	// ready closes once the transport subscription is open or has failed with err.
	ready chan struct{}
	err   error
	// waiters counts Subscribe calls between lookup and attach. Guarded by Registry.mu.
	waiters int

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one local consumer of a channel.
//
// Events delivers matching changes. Resync fires when events may have been
// missed (buffer overflow or upstream loss); the consumer should refetch.
type Subscription struct {
	key    ChannelKey
	events chan Change
	resync chan struct{}

	reg    *Registry
	once   sync.Once
	closed chan struct{}
}

func (s *Subscription) Key() ChannelKey         { return s.key }
func (s *Subscription) Events() <-chan Change   { return s.events }
func (s *Subscription) Resync() <-chan struct{} { return s.resync }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.closed)
		s.reg.release(s)
	})
}

// Subscribe attaches to key, opening the upstream if this is the first
// subscriber. The subscription closes itself when ctx is done.
func (r *Registry) Subscribe(ctx context.Context, key ChannelKey) (*Subscription, error) {
	sub := &Subscription{
		key:    key,
		events: make(chan Change, r.buffer),
		resync: make(chan struct{}, 1),
		reg:    r,
		closed: make(chan struct{}),
	}

	// The transport round trip happens outside r.mu; concurrent callers for
	// the same key wait on the pending upstream instead of opening another.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	up, ok := r.channels[key]
	if !ok {
		upCtx, cancel := context.WithCancel(context.Background())
		up = &upstream{key: key, ctx: upCtx, cancel: cancel, done: make(chan struct{}), ready: make(chan struct{}), subs: map[*Subscription]struct{}{}}
		r.channels[key] = up
	}
	up.waiters++
	r.mu.Unlock()

	if !ok {
		r.open(up)
	}
	<-up.ready

	r.mu.Lock()
	up.waiters--
	if up.err != nil {
		r.mu.Unlock()
		return nil, up.err
	}
	if r.closed {
		orphan := r.detachIfIdleLocked(up)
		r.mu.Unlock()
		if orphan {
			r.shutdown(up)
		}
		return nil, ErrRegistryClosed
	}
	up.mu.Lock()
	up.subs[sub] = struct{}{}
	up.mu.Unlock()
	r.mu.Unlock()

	metrics.RealtimeSubscribers.Inc()
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()
	return sub, nil
}

// open subscribes up on the transport and starts its pump. On failure the
// pending entry is dropped so the next Subscribe tries again.
func (r *Registry) open(up *upstream) {
	msgs, err := r.transport.Subscribe(up.ctx, up.key.Topic())
	if err != nil {
		up.cancel()
		close(up.done)
		r.mu.Lock()
		if r.channels[up.key] == up {
			delete(r.channels, up.key)
		}
		up.err = err
		r.mu.Unlock()
		close(up.ready)
		return
	}
	metrics.RealtimeUpstreams.Inc()
	go r.pump(up.ctx, up, msgs)
	r.log.Debug("upstream opened", "topic", up.key.Topic())
	close(up.ready)
}

// detachIfIdleLocked removes up from the registry when nobody holds or is
// about to hold it. The caller holds r.mu and must shut up down when it returns true.
func (r *Registry) detachIfIdleLocked(up *upstream) bool {
	up.mu.Lock()
	idle := len(up.subs) == 0 && up.waiters == 0
	up.mu.Unlock()
	if idle && r.channels[up.key] == up {
		delete(r.channels, up.key)
		return true
	}
	return false
}

func (r *Registry) shutdown(up *upstream) {
	up.cancel()
	<-up.done
	metrics.RealtimeUpstreams.Dec()
	r.log.Debug("upstream closed", "topic", up.key.Topic())
}

func (r *Registry) release(sub *Subscription) {
	r.mu.Lock()
	up, ok := r.channels[sub.key]
	if !ok {
		r.mu.Unlock()
		return
	}
	up.mu.Lock()
	if _, ok := up.subs[sub]; !ok {
		up.mu.Unlock()
		r.mu.Unlock()
		return
	}
	delete(up.subs, sub)
	close(sub.events)
	close(sub.resync)
	up.mu.Unlock()
	idle := r.detachIfIdleLocked(up)
	r.mu.Unlock()

	metrics.RealtimeSubscribers.Dec()
	if idle {
		r.shutdown(up)
	}
}

// Upstreams returns the number of open upstream subscriptions.
func (r *Registry) Upstreams() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Subscribers returns the number of local subscribers on key.
func (r *Registry) Subscribers(key ChannelKey) int {
	r.mu.Lock()
	up, ok := r.channels[key]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	return len(up.subs)
}

// Close detaches every subscriber and closes all upstreams.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	var subs []*Subscription
	for _, up := range r.channels {
		up.mu.Lock()
		for s := range up.subs {
			subs = append(subs, s)
		}
		up.mu.Unlock()
	}
	r.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

func (r *Registry) pump(ctx context.Context, up *upstream, msgs <-chan []byte) {
	defer close(up.done)
	topic := up.key.Topic()
	for {
		for payload := range msgs {
			var c Change
			if err := json.Unmarshal(payload, &c); err != nil {
				r.log.Warn("dropping malformed change", "topic", topic, "err", err)
				continue
			}
			if !up.key.Matches(c) {
				continue
			}
			metrics.RealtimeEvents.WithLabelValues(c.Table, string(c.Type)).Inc()
			r.dispatch(up, c)
		}
		if ctx.Err() != nil {
			return
		}

		r.log.Warn("upstream lost, resubscribing", "topic", topic)
		next, err := r.resubscribe(ctx, topic)
		if err != nil {
			return
		}
		metrics.RealtimeResubscribes.WithLabelValues(up.key.Table).Inc()
		msgs = next
		// Anything published while we were away is gone.
		r.signalResync(up)
	}
}

func (r *Registry) resubscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	var msgs <-chan []byte
	op := func() error {
		m, err := r.transport.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		msgs = m
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warn("resubscribe failed", "topic", topic, "err", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(r.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Registry) dispatch(up *upstream, c Change) {
	up.mu.Lock()
	defer up.mu.Unlock()
	for s := range up.subs {
		select {
		case s.events <- c:
		default:
			metrics.RealtimeDropped.WithLabelValues(c.Table).Inc()
			notifyResync(s)
		}
	}
}

func (r *Registry) signalResync(up *upstream) {
	up.mu.Lock()
	defer up.mu.Unlock()
	for s := range up.subs {
		notifyResync(s)
	}
}

func notifyResync(s *Subscription) {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}
