package webcall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voice-dashboard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoom struct {
	mu         sync.Mutex
	l          Listener
	connectErr error
	mic        []bool
	disconnect int
	autoState  bool
}

func (r *fakeRoom) Connect(ctx context.Context, url, token string) error {
	if r.connectErr != nil {
		return r.connectErr
	}
	if r.autoState {
		r.l.OnConnectionStateChanged(RoomConnected)
	}
	return nil
}

func (r *fakeRoom) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mic = append(r.mic, enabled)
	return nil
}

func (r *fakeRoom) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnect++
	return nil
}

type fakeSink struct {
	mu       sync.Mutex
	attached map[string]bool
}

func (s *fakeSink) Attach(t Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached[t.SID] = true
	return nil
}

func (s *fakeSink) Detach(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attached, t.SID)
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attached)
}

func newCall(room *fakeRoom, sink *fakeSink) *Call {
	return New(func(l Listener) Room {
		room.l = l
		return room
	}, sink, WithTick(5*time.Millisecond), WithLogger(logger.Discard()))
}

func TestDisconnectWithoutConnectIsNoop(t *testing.T) {
	c := newCall(&fakeRoom{}, &fakeSink{attached: map[string]bool{}})
	c.Disconnect()
	c.Disconnect()
	assert.Equal(t, StateIdle, c.State())
}

func TestToggleMuteTwiceRestores(t *testing.T) {
	room := &fakeRoom{autoState: true}
	c := newCall(room, &fakeSink{attached: map[string]bool{}})

	before := c.IsMuted()
	_, err := c.ToggleMute(context.Background())
	require.NoError(t, err)
	_, err = c.ToggleMute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, c.IsMuted())

	require.NoError(t, c.Connect(context.Background(), "wss://room", "tok"))
	muted, err := c.ToggleMute(context.Background())
	require.NoError(t, err)
	assert.True(t, muted)
	muted, err = c.ToggleMute(context.Background())
	require.NoError(t, err)
	assert.False(t, muted)
	assert.Equal(t, []bool{true, false, true}, room.mic)
}

func TestConnectFailureSetsError(t *testing.T) {
	room := &fakeRoom{connectErr: errors.New("bad token")}
	c := newCall(room, &fakeSink{attached: map[string]bool{}})

	err := c.Connect(context.Background(), "wss://room", "tok")
	require.Error(t, err)
	assert.Equal(t, StateError, c.State())
	assert.EqualError(t, c.Err(), "bad token")

	// The failed room is gone, so disconnect is a no-op.
	c.Disconnect()
	assert.Equal(t, StateError, c.State())
}

func TestConnectedLifecycle(t *testing.T) {
	room := &fakeRoom{}
	sink := &fakeSink{attached: map[string]bool{}}
	c := newCall(room, sink)

	require.NoError(t, c.Connect(context.Background(), "wss://room", "tok"))
	assert.Equal(t, StateConnecting, c.State())
	assert.ErrorIs(t, c.Connect(context.Background(), "wss://room", "tok"), ErrBusy)

	room.l.OnConnectionStateChanged(RoomConnected)
	assert.Equal(t, StateConnected, c.State())
	assert.Eventually(t, func() bool { return c.Elapsed() >= 2*time.Second }, time.Second, 5*time.Millisecond)

	room.l.OnTrackSubscribed(Track{SID: "t1", Kind: TrackAudio})
	room.l.OnTrackSubscribed(Track{SID: "v1", Kind: TrackVideo})
	assert.Equal(t, 1, sink.count())

	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 1, room.disconnect)

	stopped := c.Elapsed()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, c.Elapsed())

	// Events from the old room are ignored.
	room.l.OnConnectionStateChanged(RoomConnected)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestRemoteDisconnectStopsCounter(t *testing.T) {
	room := &fakeRoom{autoState: true}
	sink := &fakeSink{attached: map[string]bool{}}
	c := newCall(room, sink)
	require.NoError(t, c.Connect(context.Background(), "wss://room", "tok"))
	room.l.OnTrackSubscribed(Track{SID: "t1", Kind: TrackAudio})

	room.l.OnConnectionStateChanged(RoomDisconnected)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 0, sink.count())

	c.Disconnect()
	assert.Equal(t, 0, room.disconnect)
}
