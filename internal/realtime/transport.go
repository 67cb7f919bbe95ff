package realtime

import (
	"context"
	"sync"
)

// Transport moves encoded changes between processes.
//
// Subscribe returns a channel that is closed when ctx is done or when the
// upstream subscription is lost. Callers distinguish the two by checking ctx.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// MemoryTransport delivers in-process. Used by tests and single-node setups.
type MemoryTransport struct {
	mu     sync.Mutex
	subs   map[string]map[chan []byte]struct{}
	buffer int
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{subs: map[string]map[chan []byte]struct{}{}, buffer: 256}
}

func (m *MemoryTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *MemoryTransport) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte, m.buffer)
	m.mu.Lock()
	if m.subs[topic] == nil {
		m.subs[topic] = map[chan []byte]struct{}{}
	}
	m.subs[topic][ch] = struct{}{}
	m.mu.Unlock()

	context.AfterFunc(ctx, func() { m.remove(topic, ch) })
	return ch, nil
}

func (m *MemoryTransport) remove(topic string, ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[topic][ch]; !ok {
		return
	}
	delete(m.subs[topic], ch)
	if len(m.subs[topic]) == 0 {
		delete(m.subs, topic)
	}
	close(ch)
}

// Sever closes every subscription on topic, simulating upstream loss.
func (m *MemoryTransport) Sever(topic string) {
	m.mu.Lock()
	chans := make([]chan []byte, 0, len(m.subs[topic]))
	for ch := range m.subs[topic] {
		chans = append(chans, ch)
	}
	m.mu.Unlock()
	for _, ch := range chans {
		m.remove(topic, ch)
	}
}

// Subscribers returns how many subscriptions are open on topic.
func (m *MemoryTransport) Subscribers(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[topic])
}
