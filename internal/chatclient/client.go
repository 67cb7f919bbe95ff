// Package chatclient talks to the chat application server: sessions, agent
// chat configuration and streamed replies.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-dashboard/internal/apperrors"
)

const serviceName = "chat server"

type Config struct {
	BaseURL string
	APIKey  string
	// HTTPClient defaults to a client without a global timeout; streams are bounded by ctx.
	HTTPClient *http.Client
}

// Client is stateless and safe for concurrent use.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	log    *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: http.DefaultTransport}
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey: cfg.APIKey,
		http:   hc,
		log:    log.With("component", "chatclient"),
	}
}

type startSessionRequest struct {
	AgentID string `json:"agent_id"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

// StartSession opens a chat session with an agent and returns its id.
func (c *Client) StartSession(ctx context.Context, agentID string) (string, error) {
	if strings.TrimSpace(agentID) == "" {
		return "", apperrors.Validation("agent_id", "is required")
	}
	var out startSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/session", startSessionRequest{AgentID: agentID}, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", apperrors.Unavailable(serviceName, fmt.Errorf("no session_id in response"))
	}
	return out.SessionID, nil
}

// EndSession closes a session on the chat server.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.Validation("session_id", "is required")
	}
	return c.doJSON(ctx, http.MethodPost, "/chat/session/"+url.PathEscape(sessionID)+"/end", nil, nil)
}

// SessionSummary is the chat server's view of a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agent_id"`
	Status       string    `json:"status"`
	MessageCount int       `json:"message_count"`
	StartedAt    time.Time `json:"started_at"`
}

// ListSessions returns the agent's sessions known to the chat server.
func (c *Client) ListSessions(ctx context.Context, agentID string) ([]SessionSummary, error) {
	if agentID == "" {
		return nil, apperrors.Validation("agent_id", "is required")
	}
	var out struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/agents/"+url.PathEscape(agentID)+"/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// AgentConfig is the per-agent chat widget configuration.
type AgentConfig struct {
	AgentID        string  `json:"agent_id"`
	WelcomeMessage string  `json:"welcome_message,omitempty"`
	SystemPrompt   string  `json:"system_prompt,omitempty"`
	Model          string  `json:"model,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Enabled        bool    `json:"enabled"`
}

func (c *Client) GetConfig(ctx context.Context, agentID string) (AgentConfig, error) {
	if agentID == "" {
		return AgentConfig{}, apperrors.Validation("agent_id", "is required")
	}
	var out AgentConfig
	err := c.doJSON(ctx, http.MethodGet, "/chat/config?agent_id="+url.QueryEscape(agentID), nil, &out)
	return out, err
}

func (c *Client) CreateConfig(ctx context.Context, cfg AgentConfig) (AgentConfig, error) {
	return c.writeConfig(ctx, http.MethodPost, cfg)
}

func (c *Client) UpdateConfig(ctx context.Context, cfg AgentConfig) (AgentConfig, error) {
	return c.writeConfig(ctx, http.MethodPut, cfg)
}

func (c *Client) writeConfig(ctx context.Context, method string, cfg AgentConfig) (AgentConfig, error) {
	if cfg.AgentID == "" {
		return AgentConfig{}, apperrors.Validation("agent_id", "is required")
	}
	var out AgentConfig
	err := c.doJSON(ctx, method, "/chat/config", cfg, &out)
	return out, err
}

type sendMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Stream posts a message and feeds every decoded line to onEvent. It returns
// the concatenated content once the stream ends ([DONE] or EOF). A transport
// failure mid-stream returns an error and the partial content is discarded.
func (c *Client) Stream(ctx context.Context, sessionID, text string, onEvent func(Event)) (string, error) {
	if sessionID == "" {
		return "", apperrors.Validation("session_id", "is required")
	}
	if strings.TrimSpace(text) == "" {
		return "", apperrors.Validation("message", "is required")
	}
	body, err := json.Marshal(sendMessageRequest{SessionID: sessionID, Message: text})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/chat/message", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.Unavailable(serviceName, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var content strings.Builder
	err = Decode(resp.Body, func(ev Event) {
		if ev.Content != "" {
			content.WriteString(ev.Content)
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}, func(line []byte, err error) {
		c.log.Warn("malformed stream line", "err", err, "line", string(line))
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.Unavailable(serviceName, err)
	}
	return content.String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Unavailable(serviceName, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Unavailable(serviceName, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(msg))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("chat resource", "")
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.Validation("", text)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict("chat", text)
	default:
		return apperrors.Unavailable(serviceName, fmt.Errorf("status %d: %s", resp.StatusCode, text))
	}
}
