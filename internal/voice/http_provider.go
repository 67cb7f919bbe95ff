package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-dashboard/internal/apperrors"
)

// HTTPProvider calls POST /calls/test on the voice platform.
type HTTPProvider struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		base:   strings.TrimRight(baseURL, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string { return "voice-http" }

func (p *HTTPProvider) PlaceTestCall(ctx context.Context, req TestCallRequest) (TestCallResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return TestCallResult{}, err
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/calls/test", bytes.NewReader(body))
	if err != nil {
		return TestCallResult{}, err
	}
	hr.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		hr.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(hr)
	if err != nil {
		return TestCallResult{}, apperrors.Unavailable("voice platform", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			return TestCallResult{}, apperrors.Validation("", strings.TrimSpace(string(msg)))
		}
		return TestCallResult{}, apperrors.Unavailable("voice platform", fmt.Errorf("status %d", resp.StatusCode))
	}

	var out TestCallResult
	// Some deployments answer 202 with an empty body.
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return TestCallResult{}, apperrors.Unavailable("voice platform", fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}
