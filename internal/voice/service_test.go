package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/pkg/logger"
)

func TestMakeTestCall_PostsOnce(t *testing.T) {
	var hits atomic.Int32
	var got TestCallRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calls/test" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		hits.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(TestCallResult{CallID: "call-1", Status: "queued"})
	}))
	defer srv.Close()

	svc := NewService(NewHTTPProvider(srv.URL, "k", time.Second), logger.Discard())
	res, err := svc.MakeTestCall(context.Background(), "o1", "a1", " +14155550100 ")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.CallID != "call-1" || hits.Load() != 1 {
		t.Fatalf("unexpected result %+v hits=%d", res, hits.Load())
	}
	if got.PhoneNumber != "+14155550100" || got.AgentID != "a1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestMakeTestCall_RejectsUndialableWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()
	svc := NewService(NewHTTPProvider(srv.URL, "", time.Second), logger.Discard())

	for _, phone := range []string{"4155550100", "+1415", ""} {
		_, err := svc.MakeTestCall(context.Background(), "o1", "a1", phone)
		if !apperrors.IsValidation(err) {
			t.Fatalf("phone %q: expected validation error, got %v", phone, err)
		}
	}
	if _, err := svc.MakeTestCall(context.Background(), "o1", "", "+14155550100"); !apperrors.IsValidation(err) {
		t.Fatalf("expected agent validation error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no requests, got %d", hits.Load())
	}
}

func TestMakeTestCall_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	svc := NewService(NewHTTPProvider(srv.URL, "", time.Second), logger.Discard())
	_, err := svc.MakeTestCall(context.Background(), "o1", "a1", "+14155550100")
	if !apperrors.IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
