package webcall

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

var ErrBusy = errors.New("webcall: already connecting or connected")

type Option func(*Call)

// WithTick overrides the elapsed counter interval (1s by default).
func WithTick(d time.Duration) Option { return func(c *Call) { c.tick = d } }

func WithLogger(l *slog.Logger) Option { return func(c *Call) { c.log = l } }

// Call is safe for concurrent use.
type Call struct {
	factory RoomFactory
	sink    AudioSink
	tick    time.Duration
	log     *slog.Logger

	mu       sync.Mutex
	state    State
	err      error
	room     Room
	gen      uint64
	muted    bool
	ticks    int64
	stopTick chan struct{}
	attached map[string]Track
}

func New(factory RoomFactory, sink AudioSink, opts ...Option) *Call {
	c := &Call{
		factory:  factory,
		sink:     sink,
		tick:     time.Second,
		log:      slog.Default(),
		state:    StateIdle,
		attached: map[string]Track{},
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "webcall")
	return c
}

func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err is the connect failure that put the call in StateError.
func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Call) IsMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Elapsed counts ticks while connected, one second each by default.
func (c *Call) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.ticks) * time.Second
}

// Connect joins the room with a signed token and enables the microphone.
// Any failure moves the call to StateError; there is no retry.
func (c *Call) Connect(ctx context.Context, url, token string) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return ErrBusy
	}
	c.gen++
	gen := c.gen
	c.state = StateConnecting
	c.err = nil
	c.ticks = 0
	c.muted = false
	room := c.factory(&listener{call: c, gen: gen})
	c.room = room
	c.mu.Unlock()

	err := room.Connect(ctx, url, token)
	if err == nil {
		err = room.SetMicrophoneEnabled(ctx, true)
	}
	if err != nil {
		c.fail(gen, err)
		return err
	}
	return nil
}

func (c *Call) fail(gen uint64, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	room := c.room
	c.room = nil
	c.state = StateError
	c.err = err
	c.stopTickerLocked()
	tracks := c.detachAllLocked()
	c.mu.Unlock()

	c.detach(tracks)
	if room != nil {
		_ = room.Disconnect()
	}
	c.log.Warn("connect failed", "err", err)
}

// Disconnect tears down the room and detaches remote audio. Without a room it does nothing.
func (c *Call) Disconnect() {
	c.mu.Lock()
	if c.room == nil {
		c.mu.Unlock()
		return
	}
	room := c.room
	c.room = nil
	c.gen++
	c.state = StateDisconnected
	c.stopTickerLocked()
	tracks := c.detachAllLocked()
	c.mu.Unlock()

	c.detach(tracks)
	if err := room.Disconnect(); err != nil {
		c.log.Warn("room disconnect failed", "err", err)
	}
}

// ToggleMute flips the local microphone and returns the new muted flag.
func (c *Call) ToggleMute(ctx context.Context) (bool, error) {
	c.mu.Lock()
	next := !c.muted
	room := c.room
	c.mu.Unlock()

	if room != nil {
		if err := room.SetMicrophoneEnabled(ctx, !next); err != nil {
			return c.IsMuted(), err
		}
	}
	c.mu.Lock()
	c.muted = next
	c.mu.Unlock()
	return next, nil
}

func (c *Call) onState(gen uint64, s ConnectionState) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	var tracks []Track
	switch s {
	case RoomConnected:
		c.state = StateConnected
		c.startTickerLocked()
	case RoomDisconnected:
		c.state = StateDisconnected
		c.room = nil
		c.gen++
		c.stopTickerLocked()
		tracks = c.detachAllLocked()
	}
	c.mu.Unlock()
	c.detach(tracks)
}

func (c *Call) onTrack(gen uint64, t Track, subscribed bool) {
	if t.Kind != TrackAudio || c.sink == nil {
		return
	}
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if subscribed {
		c.attached[t.SID] = t
	} else {
		delete(c.attached, t.SID)
	}
	c.mu.Unlock()

	if subscribed {
		if err := c.sink.Attach(t); err != nil {
			c.log.Warn("attach audio failed", "track", t.SID, "err", err)
		}
		return
	}
	c.sink.Detach(t)
}

func (c *Call) startTickerLocked() {
	if c.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	c.stopTick = stop
	go func() {
		t := time.NewTicker(c.tick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				c.mu.Lock()
				if c.stopTick == stop {
					c.ticks++
				}
				c.mu.Unlock()
			}
		}
	}()
}

func (c *Call) stopTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

func (c *Call) detachAllLocked() []Track {
	if len(c.attached) == 0 {
		return nil
	}
	out := make([]Track, 0, len(c.attached))
	for _, t := range c.attached {
		out = append(out, t)
	}
	c.attached = map[string]Track{}
	return out
}

func (c *Call) detach(tracks []Track) {
	if c.sink == nil {
		return
	}
	for _, t := range tracks {
		c.sink.Detach(t)
	}
}

type listener struct {
	call *Call
	gen  uint64
}

func (l *listener) OnConnectionStateChanged(s ConnectionState) { l.call.onState(l.gen, s) }
func (l *listener) OnTrackSubscribed(t Track)                  { l.call.onTrack(l.gen, t, true) }
func (l *listener) OnTrackUnsubscribed(t Track)                { l.call.onTrack(l.gen, t, false) }
