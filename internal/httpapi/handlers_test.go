package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voice-dashboard/internal/agents"
	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/auth"
	"voice-dashboard/internal/calls"
	"voice-dashboard/internal/campaigns"
	"voice-dashboard/internal/chat"
	"voice-dashboard/internal/chatclient"
	"voice-dashboard/internal/config"
	"voice-dashboard/internal/export"
	"voice-dashboard/internal/notify"
	"voice-dashboard/internal/orgs"
	"voice-dashboard/internal/realtime"
	"voice-dashboard/internal/signup"
	"voice-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	h         Handlers
	transport *realtime.MemoryTransport
	registry  *realtime.Registry
	orgs      *orgs.MemoryRepo
	activity  *audit.MemoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	act := audit.NewMemoryRepo()
	activity := audit.NewService(act)
	tr := realtime.NewMemoryTransport()
	reg := realtime.NewRegistry(tr, logger.Discard(), realtime.RegistryOptions{})
	t.Cleanup(reg.Close)

	rooms, err := auth.NewRoomMinter(config.MediaConfig{RoomURL: "wss://media.test", APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)

	campaignRepo := campaigns.NewMemoryRepo()
	campaignRepo.AddAgent("a1", "o1", "Ava")
	agentRepo := agents.NewMemoryRepo()
	agentRepo.AddNumber(agents.PhoneNumber{ID: "n1", Number: "+15550000001", Status: agents.NumberAvailable, OrganizationID: "o1"})

	orgRepo := orgs.NewMemoryRepo()
	orgSvc := orgs.NewService(orgRepo)
	callSvc := calls.NewService(calls.NewMemoryRepo(
		calls.Call{ID: "c1", OrganizationID: "o1", Status: calls.StatusCompleted, CreatedAt: time.Now().UTC()},
	))

	return &fixture{
		h: Handlers{
			Rooms:        rooms,
			Orgs:         orgSvc,
			Campaigns:    campaigns.NewService(campaignRepo, activity),
			Agents:       agents.NewService(agentRepo, activity),
			Calls:        callSvc,
			Export:       export.NewExporter(callSvc, activity),
			Chat:         chat.NewService(chat.NewMemoryRepo(), activity),
			Activity:     activity,
			Signup:       signup.NewProvisioner(orgSvc, activity, &notify.Recorder{}, logger.Discard()),
			SignupSecret: "hook-secret",
			Realtime:     reg,
			Notifier:     &notify.Recorder{},
			KeepAlive:    time.Hour,
		},
		transport: tr,
		registry:  reg,
		orgs:      orgRepo,
		activity:  act,
	}
}

func as(userID, orgID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), auth.Identity{UserID: userID, OrganizationID: orgID, Role: role}))
		c.Next()
	}
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRespondError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperrors.NotFound("campaign", "x"), http.StatusNotFound},
		{apperrors.Validation("name", "is required"), http.StatusBadRequest},
		{apperrors.Conflict("campaign", "running"), http.StatusConflict},
		{apperrors.InvalidTransition("campaign", "draft", "paused"), http.StatusConflict},
		{apperrors.Unavailable("chat server", errors.New("dial")), http.StatusBadGateway},
		{errors.New("pq: password authentication failed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/", func(c *gin.Context) { respondError(c, tc.err) })
		w := do(r, http.MethodGet, "/", nil)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		if tc.status == http.StatusInternalServerError {
			assert.NotContains(t, w.Body.String(), "password")
		}
	}
}

func TestCampaignRoutes(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	g := r.Group("/", as("u1", "o1", "admin"))
	g.POST("/campaigns", f.h.CreateCampaign)
	g.GET("/campaigns/:id", f.h.GetCampaign)
	g.POST("/campaigns/:id/status", f.h.SetCampaignStatus)
	other := r.Group("/other", as("u2", "o2", "admin"))
	other.GET("/campaigns/:id", f.h.GetCampaign)

	w := do(r, http.MethodPost, "/campaigns", map[string]any{"name": "Q1 Outreach", "agent_ids": []string{"a1"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created campaigns.Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "o1", created.OrganizationID)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/campaigns/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/other/campaigns/"+created.ID, nil).Code)

	w = do(r, http.MethodPost, "/campaigns/"+created.ID+"/status", map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), string(apperrors.KindInvalidTransition))

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/campaigns", map[string]any{"name": ""}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/campaigns", map[string]any{"name": "x", "agent_ids": []string{"ghost"}}).Code)

	req := httptest.NewRequest(http.MethodPost, "/campaigns", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_IssuesPairWithCurrentRole(t *testing.T) {
	f := newFixture(t)
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	require.NoError(t, err)
	f.h.Auth = m
	_, err = f.h.Orgs.AssignRole(context.Background(), "u1", "o1", "manager")
	require.NoError(t, err)

	r := gin.New()
	r.POST("/auth/refresh", f.h.Refresh)

	pair, err := m.IssuePair(time.Now(), "u1", "o1", "member")
	require.NoError(t, err)
	w := do(r, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var next auth.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	claims, err := m.Verify(next.AccessToken, auth.TokenTypeAccess, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "manager", claims.Role)

	w = do(r, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := m.IssuePair(time.Now(), "u9", "o1", "member")
	require.NoError(t, err)
	w = do(r, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": other.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScope_SuperAdminUsesQuery(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.GET("/calls", as("root", "", "super_admin"), f.h.ListCalls)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/calls", nil).Code)

	w := do(r, http.MethodGet, "/calls?organization_id=o1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"c1"`)
}

func TestExportCalls_XLSX(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.GET("/calls/export.xlsx", as("u1", "o1", "admin"), f.h.ExportCalls)

	w := do(r, http.MethodGet, "/calls/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Row-Count"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestUserCreatedHook(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.POST("/hooks/auth/user-created", f.h.UserCreated)
	payload := map[string]any{
		"type":  "INSERT",
		"table": "users",
		"record": map[string]any{
			"id":                 "user-1",
			"email":              "ada@example.com",
			"raw_user_meta_data": map[string]string{"full_name": "Ada Lovelace"},
		},
	}

	w := do(r, http.MethodPost, "/hooks/auth/user-created", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	b, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/hooks/auth/user-created", bytes.NewReader(b))
	req.Header.Set(webhookSecretHeader, "hook-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res signup.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Ada Lovelace's Organization", res.Organization.Name)
	assert.Equal(t, "admin", res.Role.Role)
}

func TestWebcallToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	va, err := f.h.Agents.Create(ctx, "o1", "u1", agents.CreateInput{Name: "Receptionist", Type: agents.TypeVoice})
	require.NoError(t, err)
	ca, err := f.h.Agents.Create(ctx, "o1", "u1", agents.CreateInput{Name: "Support bot", Type: agents.TypeChat})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/webcall/token", as("u1", "o1", "member"), f.h.WebcallToken)

	w := do(r, http.MethodPost, "/webcall/token", map[string]string{"agent_id": va.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok auth.RoomToken
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	assert.Equal(t, "wss://media.test", tok.URL)
	claims, err := f.h.Rooms.ParseRoomToken(tok.Token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, tok.Room, claims.Video.Room)
	assert.Equal(t, "u1", claims.Subject)
	assert.Contains(t, claims.Metadata, va.ID)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/webcall/token", map[string]string{"agent_id": ca.ID}).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/webcall/token", map[string]string{"agent_id": "nope"}).Code)
}

func TestStreamChatServerMessage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\ndata: [DONE]\n\n")
	}))
	defer upstream.Close()

	f := newFixture(t)
	f.h.ChatServer = chatclient.New(chatclient.Config{BaseURL: upstream.URL}, logger.Discard())
	r := gin.New()
	r.POST("/chat/message", as("u1", "o1", "member"), f.h.StreamChatServerMessage)

	w := do(r, http.MethodPost, "/chat/message", map[string]string{"session_id": "s1", "message": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event:token")
	assert.Contains(t, body, "event:done")
	assert.Contains(t, body, `"content":"Hello"`)

	w = do(r, http.MethodPost, "/chat/message", map[string]string{"session_id": "s1", "message": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

// readEvent returns the name and data of the next SSE event, skipping comments.
func readEvent(t *testing.T, rd *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if name != "" || data != "" {
				return name, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestStreamChanges(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.GET("/realtime/:table", as("u1", "o1", "member"), f.h.StreamChanges)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/realtime/secrets")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/realtime/calls?filter=organization_id=eq.o2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/realtime/calls", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rd := bufio.NewReader(resp.Body)
	name, data := readEvent(t, rd)
	assert.Equal(t, "subscribed", name)
	assert.Contains(t, data, "realtime:calls:organization_id=eq.o1")

	key := realtime.ChannelKey{Table: "calls", Filter: realtime.Eq("organization_id", "o1")}
	require.Eventually(t, func() bool { return f.transport.Subscribers(key.Topic()) == 1 }, time.Second, 5*time.Millisecond)
	change, _ := json.Marshal(realtime.Change{Table: "calls", Type: realtime.Insert, Record: json.RawMessage(`{"id":"c9","organization_id":"o1"}`)})
	require.NoError(t, f.transport.Publish(context.Background(), key.Topic(), change))

	name, data = readEvent(t, rd)
	assert.Equal(t, "change", name)
	assert.Contains(t, data, `"c9"`)
}

func TestStreamLive_SnapshotThenUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.h.Chat.CreateSession(ctx, "o1", chat.CreateSessionInput{AgentID: "a1", CustomerPhone: "+15550001111"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/live/:entity", as("u1", "o1", "member"), f.h.StreamLive)
	srv := httptest.NewServer(r)
	defer srv.Close()

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	req, _ := http.NewRequestWithContext(cctx, http.MethodGet, srv.URL+"/live/chat_sessions", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rd := bufio.NewReader(resp.Body)
	name, data := readEvent(t, rd)
	assert.Equal(t, "snapshot", name)
	var snap struct {
		Data []chat.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	require.Len(t, snap.Data, 1)

	key := realtime.ChannelKey{Table: "chat_sessions", Filter: realtime.Eq("organization_id", "o1")}
	require.Eventually(t, func() bool { return f.transport.Subscribers(key.Topic()) == 1 }, time.Second, 5*time.Millisecond)
	closed, _ := json.Marshal(map[string]any{"id": snap.Data[0].ID, "organization_id": "o1", "status": "closed"})
	change, _ := json.Marshal(realtime.Change{Table: "chat_sessions", Type: realtime.Update, Record: closed})
	require.NoError(t, f.transport.Publish(ctx, key.Topic(), change))

	for i := 0; i < 3 && len(snap.Data) > 0; i++ {
		name, data = readEvent(t, rd)
		assert.Equal(t, "snapshot", name)
		require.NoError(t, json.Unmarshal([]byte(data), &snap))
	}
	assert.Empty(t, snap.Data)

	w := do(r, http.MethodGet, "/live/secrets", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamLive_PhoneNumbersDropReleased(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.GET("/live/:entity", as("u1", "o1", "member"), f.h.StreamLive)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/live/phone_numbers", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rd := bufio.NewReader(resp.Body)
	name, data := readEvent(t, rd)
	assert.Equal(t, "snapshot", name)
	var snap struct {
		Data []agents.PhoneNumber `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "n1", snap.Data[0].ID)

	key := realtime.ChannelKey{Table: "phone_numbers", Filter: realtime.Eq("organization_id", "o1")}
	require.Eventually(t, func() bool { return f.transport.Subscribers(key.Topic()) == 1 }, time.Second, 5*time.Millisecond)
	change, _ := json.Marshal(realtime.Change{
		Table:     "phone_numbers",
		Type:      realtime.Update,
		Record:    json.RawMessage(`{"id":"n1","number":"+15550000001","status":"available","organization_id":null}`),
		OldRecord: json.RawMessage(`{"id":"n1","organization_id":"o1"}`),
	})
	require.NoError(t, f.transport.Publish(ctx, key.Topic(), change))

	for i := 0; i < 3 && len(snap.Data) > 0; i++ {
		name, data = readEvent(t, rd)
		assert.Equal(t, "snapshot", name)
		require.NoError(t, json.Unmarshal([]byte(data), &snap))
	}
	assert.Empty(t, snap.Data)
}

func TestChatConfigRoutes(t *testing.T) {
	var wrote []chatclient.AgentConfig
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/config", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatclient.AgentConfig{AgentID: r.URL.Query().Get("agent_id"), Model: "m1", Enabled: true})
	})
	save := func(w http.ResponseWriter, r *http.Request) {
		var cfg chatclient.AgentConfig
		_ = json.NewDecoder(r.Body).Decode(&cfg)
		wrote = append(wrote, cfg)
		_ = json.NewEncoder(w).Encode(cfg)
	}
	mux.HandleFunc("POST /chat/config", save)
	mux.HandleFunc("PUT /chat/config", save)
	mux.HandleFunc("GET /agents/{id}/sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"sessions": []chatclient.SessionSummary{{ID: "s1", AgentID: r.PathValue("id"), MessageCount: 3}}})
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	f := newFixture(t)
	f.h.ChatServer = chatclient.New(chatclient.Config{BaseURL: upstream.URL}, logger.Discard())
	a, err := f.h.Agents.Create(context.Background(), "o1", "u1", agents.CreateInput{Name: "Helper", Type: agents.TypeChat})
	require.NoError(t, err)

	r := gin.New()
	mine := r.Group("/", as("u1", "o1", "admin"))
	mine.GET("/agents/:id/chat-config", f.h.GetChatConfig)
	mine.POST("/agents/:id/chat-config", f.h.CreateChatConfig)
	mine.PUT("/agents/:id/chat-config", f.h.UpdateChatConfig)
	mine.GET("/agents/:id/chat-server-sessions", f.h.ListChatServerSessions)
	theirs := r.Group("/other", as("u2", "o2", "admin"))
	theirs.GET("/agents/:id/chat-config", f.h.GetChatConfig)

	w := do(r, http.MethodGet, "/agents/"+a.ID+"/chat-config", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"model":"m1"`)

	w = do(r, http.MethodPost, "/agents/"+a.ID+"/chat-config", map[string]any{"agent_id": "spoofed", "welcome_message": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(r, http.MethodPut, "/agents/"+a.ID+"/chat-config", map[string]any{"model": "m2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, wrote, 2)
	assert.Equal(t, a.ID, wrote[0].AgentID)
	assert.Equal(t, "hi", wrote[0].WelcomeMessage)
	assert.Equal(t, "m2", wrote[1].Model)

	w = do(r, http.MethodGet, "/agents/"+a.ID+"/chat-server-sessions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"message_count":3`)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/other/agents/"+a.ID+"/chat-config", nil).Code)
	assert.Len(t, wrote, 2)
}
