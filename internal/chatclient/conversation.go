package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"voice-dashboard/internal/metrics"
	"voice-dashboard/internal/notify"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrNoSession is returned by SendMessage before StartSession.
var ErrNoSession = errors.New("chatclient: no active session")

// Conversation is a single chat thread with local history. The assistant's
// reply accumulates in a scratch buffer and becomes one finalized message
// when the stream ends.
type Conversation struct {
	client   *Client
	notifier notify.Notifier
	clock    func() time.Time

	mu        sync.Mutex
	sessionID string
	history   []Message
	pending   strings.Builder
	streaming bool
}

func NewConversation(c *Client, n notify.Notifier) *Conversation {
	return &Conversation{client: c, notifier: n, clock: time.Now}
}

// StartSession opens a session and resets local history.
func (cv *Conversation) StartSession(ctx context.Context, agentID string) (string, error) {
	id, err := cv.client.StartSession(ctx, agentID)
	if err != nil {
		cv.report(ctx, "Could not start chat", err.Error())
		return "", err
	}
	cv.mu.Lock()
	cv.sessionID = id
	cv.history = nil
	cv.pending.Reset()
	cv.mu.Unlock()
	return id, nil
}

func (cv *Conversation) SessionID() string {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return cv.sessionID
}

// SendMessage appends the user's message, streams the reply and commits it.
// onToken receives the growing partial reply after every fragment.
func (cv *Conversation) SendMessage(ctx context.Context, text string, onToken func(partial string)) (Message, error) {
	cv.mu.Lock()
	if cv.sessionID == "" {
		cv.mu.Unlock()
		return Message{}, ErrNoSession
	}
	if cv.streaming {
		cv.mu.Unlock()
		return Message{}, errors.New("chatclient: a reply is already streaming")
	}
	sid := cv.sessionID
	cv.streaming = true
	cv.history = append(cv.history, Message{Role: RoleUser, Content: text, CreatedAt: cv.clock().UTC()})
	cv.pending.Reset()
	cv.mu.Unlock()

	_, err := cv.client.Stream(ctx, sid, text, func(ev Event) {
		if ev.Error != "" {
			cv.report(ctx, "Chat error", ev.Error)
		}
		if ev.Content == "" {
			return
		}
		metrics.ChatTokens.Inc()
		cv.mu.Lock()
		cv.pending.WriteString(ev.Content)
		partial := cv.pending.String()
		cv.mu.Unlock()
		if onToken != nil {
			onToken(partial)
		}
	})

	cv.mu.Lock()
	cv.streaming = false
	if err != nil {
		cv.pending.Reset()
		cv.mu.Unlock()
		metrics.ChatStreams.WithLabelValues("dropped").Inc()
		cv.report(context.WithoutCancel(ctx), "Chat stream interrupted", err.Error())
		return Message{}, err
	}
	msg := Message{Role: RoleAssistant, Content: cv.pending.String(), CreatedAt: cv.clock().UTC()}
	cv.history = append(cv.history, msg)
	cv.pending.Reset()
	cv.mu.Unlock()
	metrics.ChatStreams.WithLabelValues("completed").Inc()
	return msg, nil
}

// History returns a copy of committed messages.
func (cv *Conversation) History() []Message {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	out := make([]Message, len(cv.history))
	copy(out, cv.history)
	return out
}

// Pending returns the reply buffered so far for the in-flight stream.
func (cv *Conversation) Pending() string {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return cv.pending.String()
}

func (cv *Conversation) report(ctx context.Context, title, msg string) {
	if cv.notifier != nil {
		cv.notifier.Notify(ctx, notify.Error(title, msg))
	}
}
