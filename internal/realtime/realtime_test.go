package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"voice-dashboard/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("organization_id=eq.org-1")
	require.NoError(t, err)
	assert.Equal(t, Filter{Column: "organization_id", Value: "org-1"}, f)
	assert.Equal(t, "organization_id=eq.org-1", f.String())

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.True(t, f.IsZero())

	for _, bad := range []string{"organization_id", "=eq.x", "a=neq.x", "a=eq."} {
		_, err := ParseFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestChannelKey_TopicAndMatches(t *testing.T) {
	k, err := NewChannelKey("calls", "organization_id=eq.o1")
	require.NoError(t, err)
	assert.Equal(t, "realtime:calls:organization_id=eq.o1", k.Topic())
	assert.Equal(t, "realtime:calls", ChannelKey{Table: "calls"}.Topic())

	in := Change{Table: "calls", Type: Insert, Record: json.RawMessage(`{"id":"c1","organization_id":"o1"}`)}
	other := Change{Table: "calls", Type: Insert, Record: json.RawMessage(`{"id":"c2","organization_id":"o2"}`)}
	del := Change{Table: "calls", Type: Delete, OldRecord: json.RawMessage(`{"id":"c3","organization_id":"o1"}`)}
	wrongTable := Change{Table: "agents", Type: Insert, Record: json.RawMessage(`{"organization_id":"o1"}`)}

	assert.True(t, k.Matches(in))
	assert.False(t, k.Matches(other))
	assert.True(t, k.Matches(del))
	assert.Equal(t, "c3", del.RecordID())
	assert.False(t, k.Matches(wrongTable))
}

func TestTopicsFor_ScopedColumns(t *testing.T) {
	c := Change{Table: "chat_messages", Type: Insert, Record: json.RawMessage(`{"id":"m1","session_id":"s1","organization_id":"o1","campaign_id":null}`)}
	topics := TopicsFor(c, DefaultScopes)
	assert.ElementsMatch(t, []string{
		"realtime:chat_messages",
		"realtime:chat_messages:organization_id=eq.o1",
		"realtime:chat_messages:session_id=eq.s1",
	}, topics)
}

func publish(t *testing.T, tr Transport, topic string, c Change) {
	t.Helper()
	b, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, tr.Publish(context.Background(), topic, b))
}

func recv(t *testing.T, s *Subscription) Change {
	t.Helper()
	select {
	case c := <-s.Events():
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Change{}
	}
}

func TestRegistry_SharesOneUpstreamPerKey(t *testing.T) {
	tr := NewMemoryTransport()
	reg := NewRegistry(tr, logger.Discard(), RegistryOptions{})
	defer reg.Close()

	key := ChannelKey{Table: "calls", Filter: Eq("organization_id", "o1")}
	ctx := context.Background()

	a, err := reg.Subscribe(ctx, key)
	require.NoError(t, err)
	b, err := reg.Subscribe(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Upstreams())
	assert.Equal(t, 1, tr.Subscribers(key.Topic()))
	assert.Equal(t, 2, reg.Subscribers(key))

	change := Change{Table: "calls", Type: Update, Record: json.RawMessage(`{"id":"c1","organization_id":"o1"}`)}
	publish(t, tr, key.Topic(), change)
	assert.Equal(t, "c1", recv(t, a).RecordID())
	assert.Equal(t, "c1", recv(t, b).RecordID())

	a.Close()
	a.Close()
	assert.Equal(t, 1, reg.Subscribers(key))
	assert.Equal(t, 1, reg.Upstreams())

	b.Close()
	assert.Equal(t, 0, reg.Upstreams())
	assert.Eventually(t, func() bool { return tr.Subscribers(key.Topic()) == 0 }, time.Second, 10*time.Millisecond)
}

func TestRegistry_ContextCancelReleases(t *testing.T) {
	tr := NewMemoryTransport()
	reg := NewRegistry(tr, logger.Discard(), RegistryOptions{})
	defer reg.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s, err := reg.Subscribe(ctx, ChannelKey{Table: "agents"})
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool { return reg.Upstreams() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-s.Events()
	assert.False(t, ok)
}

func TestRegistry_OverflowSignalsResync(t *testing.T) {
	tr := NewMemoryTransport()
	reg := NewRegistry(tr, logger.Discard(), RegistryOptions{Buffer: 1})
	defer reg.Close()

	key := ChannelKey{Table: "calls"}
	s, err := reg.Subscribe(context.Background(), key)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		publish(t, tr, key.Topic(), Change{Table: "calls", Type: Insert, Record: json.RawMessage(`{"id":"x"}`)})
	}
	select {
	case <-s.Resync():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected resync after overflow")
	}
}

func TestRegistry_UpstreamLossResubscribesAndResyncs(t *testing.T) {
	tr := NewMemoryTransport()
	reg := NewRegistry(tr, logger.Discard(), RegistryOptions{
		NewBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(5 * time.Millisecond) },
	})
	defer reg.Close()

	key := ChannelKey{Table: "call_queue"}
	s, err := reg.Subscribe(context.Background(), key)
	require.NoError(t, err)

	tr.Sever(key.Topic())

	select {
	case <-s.Resync():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected resync after upstream loss")
	}
	require.Eventually(t, func() bool { return tr.Subscribers(key.Topic()) == 1 }, time.Second, 5*time.Millisecond)

	publish(t, tr, key.Topic(), Change{Table: "call_queue", Type: Delete, OldRecord: json.RawMessage(`{"id":"q1"}`)})
	assert.Equal(t, "q1", recv(t, s).RecordID())
}

func TestPGBridge_HandlePublishesScopedTopics(t *testing.T) {
	tr := NewMemoryTransport()
	reg := NewRegistry(tr, logger.Discard(), RegistryOptions{})
	defer reg.Close()

	all, err := reg.Subscribe(context.Background(), ChannelKey{Table: "calls"})
	require.NoError(t, err)
	scoped, err := reg.Subscribe(context.Background(), ChannelKey{Table: "calls", Filter: Eq("organization_id", "o1")})
	require.NoError(t, err)

	b := NewPGBridge(nil, "row_changes", tr, logger.Discard())
	payload := `{"table":"calls","type":"INSERT","record":{"id":"c9","organization_id":"o1"}}`
	require.NoError(t, b.Handle(context.Background(), []byte(payload)))

	assert.Equal(t, "c9", recv(t, all).RecordID())
	got := recv(t, scoped)
	assert.Equal(t, "c9", got.RecordID())
	assert.False(t, got.CommitTimestamp.IsZero())

	assert.Error(t, b.Handle(context.Background(), []byte(`{"table":"calls","type":"TRUNCATE"}`)))
	assert.Error(t, b.Handle(context.Background(), []byte(`not json`)))
}

// gatedTransport blocks Subscribe on one topic until gate is closed.
type gatedTransport struct {
	*MemoryTransport
	topic string
	gate  chan struct{}
	calls atomic.Int32
	fail  atomic.Bool
}

func (g *gatedTransport) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	if topic == g.topic {
		g.calls.Add(1)
		<-g.gate
		if g.fail.Load() {
			return nil, errors.New("broker unavailable")
		}
	}
	return g.MemoryTransport.Subscribe(ctx, topic)
}

func TestRegistry_SlowUpstreamDoesNotBlockOtherKeys(t *testing.T) {
	slow := ChannelKey{Table: "calls"}
	tr := &gatedTransport{MemoryTransport: NewMemoryTransport(), topic: slow.Topic(), gate: make(chan struct{})}
	reg := NewRegistry(tr, logger.Discard(), RegistryOptions{})
	defer reg.Close()

	type result struct {
		sub *Subscription
		err error
	}
	waiting := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, err := reg.Subscribe(context.Background(), slow)
			waiting <- result{s, err}
		}()
	}
	require.Eventually(t, func() bool { return tr.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	fast, err := reg.Subscribe(context.Background(), ChannelKey{Table: "agents"})
	require.NoError(t, err)
	fast.Close()

	close(tr.gate)
	for i := 0; i < 2; i++ {
		r := <-waiting
		require.NoError(t, r.err)
		defer r.sub.Close()
	}
	assert.Equal(t, int32(1), tr.calls.Load())
	assert.Equal(t, 2, reg.Subscribers(slow))
	assert.Equal(t, 1, tr.Subscribers(slow.Topic()))
}

func TestRegistry_FailedOpenIsRetriedBySubsequentSubscribe(t *testing.T) {
	key := ChannelKey{Table: "calls"}
	tr := &gatedTransport{MemoryTransport: NewMemoryTransport(), topic: key.Topic(), gate: make(chan struct{})}
	tr.fail.Store(true)
	close(tr.gate)
	reg := NewRegistry(tr, logger.Discard(), RegistryOptions{})
	defer reg.Close()

	_, err := reg.Subscribe(context.Background(), key)
	require.Error(t, err)
	assert.Zero(t, reg.Upstreams())

	tr.fail.Store(false)
	s, err := reg.Subscribe(context.Background(), key)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, reg.Upstreams())
}
