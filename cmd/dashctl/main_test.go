package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"voice-dashboard/internal/auth"
	"voice-dashboard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoomToken_EnvFallback(t *testing.T) {
	t.Setenv("MEDIA_ROOM_URL", "wss://media.example")
	t.Setenv("MEDIA_API_KEY", "key")
	t.Setenv("MEDIA_API_SECRET", "secret")

	out, err := execute(t, "", "room-token", "--room", "webcall-a1", "--identity", "u1", "--ttl", "5m")
	require.NoError(t, err)

	var tok auth.RoomToken
	require.NoError(t, json.Unmarshal([]byte(out), &tok))
	assert.Equal(t, "wss://media.example", tok.URL)
	assert.Equal(t, "webcall-a1", tok.Room)

	m, err := auth.NewRoomMinter(config.MediaConfig{RoomURL: "wss://media.example", APIKey: "key", APISecret: "secret", TokenTTL: time.Minute})
	require.NoError(t, err)
	claims, err := m.ParseRoomToken(tok.Token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "webcall-a1", claims.Video.Room)
}

func TestRoomToken_MissingCredentials(t *testing.T) {
	t.Setenv("MEDIA_API_KEY", "")
	t.Setenv("MEDIA_API_SECRET", "")
	_, err := execute(t, "", "room-token", "--room", "r", "--identity", "u1")
	assert.Error(t, err)
}

func TestChat_StreamsEachLine(t *testing.T) {
	var ended atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/session", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"session_id":"sess-1"}`)
	})
	mux.HandleFunc("POST /chat/message", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"content\":\"Hel\"}\ndata: {\"content\":\"lo\"}\ndata: [DONE]\n")
	})
	mux.HandleFunc("POST /chat/session/sess-1/end", func(w http.ResponseWriter, r *http.Request) {
		ended.Store(true)
		_, _ = io.WriteString(w, `{}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := execute(t, "hi\n\nbye\n", "chat", "--server", srv.URL, "--agent", "a1")
	require.NoError(t, err)
	assert.Equal(t, "session sess-1\nHello\nHello\n", out)
	assert.True(t, ended.Load())
}

func TestChat_RequiresServer(t *testing.T) {
	t.Setenv("APPSERVER_BASE_URL", "")
	_, err := execute(t, "", "chat", "--agent", "a1")
	assert.ErrorContains(t, err, "--server")
}

func TestTestCall_PrintsResult(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calls/test", r.URL.Path)
		assert.Equal(t, "Bearer vk", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"call_id":"c1","status":"queued"}`)
	}))
	defer srv.Close()
	t.Setenv("VOICE_API_KEY", "vk")

	out, err := execute(t, "", "test-call", "--voice-url", srv.URL, "--org", "o1", "--agent", "a1", "--phone", "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "a1", got["agent_id"])
	assert.Equal(t, "+15551234567", got["phone_number"])

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "c1", res["call_id"])
	assert.Equal(t, "queued", res["status"])
}
