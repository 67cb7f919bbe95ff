package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-dashboard/internal/config"

	"github.com/gin-gonic/gin"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newManager(t)

	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, "user-1", "org-1", "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.OrganizationID != "org-1" || claims.Role != "member" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, err := m.IssuePair(time.Now(), "u", "o", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, time.Now()); err == nil {
		t.Fatalf("expected token_type mismatch")
	}
}

func TestVerify_OrganizationRequiredExceptPlatformRole(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	p, _ := m.IssuePair(now, "u", "", "admin")
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("expected organization_id missing")
	}
	p, _ = m.IssuePair(now, "u", "", "super_admin")
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now); err != nil {
		t.Fatalf("super_admin without org should verify: %v", err)
	}
}

type roles map[string]string

func (r roles) EffectiveRole(_ context.Context, userID, organizationID string) (string, error) {
	if role, ok := r[userID+"/"+organizationID]; ok {
		return role, nil
	}
	return "", errors.New("no role")
}

func TestRefresh_ReReadsRole(t *testing.T) {
	m := newManager(t)
	now := time.Now()
	p, _ := m.IssuePair(now, "u", "o", "member")

	next, err := m.Refresh(context.Background(), now.Add(time.Minute), p.RefreshToken, roles{"u/o": "manager"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := m.Verify(next.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil || claims.Role != "manager" {
		t.Fatalf("expected manager access token, got %+v %v", claims, err)
	}

	if _, err := m.Refresh(context.Background(), now, p.AccessToken, roles{"u/o": "manager"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected access token rejected as refresh, got %v", err)
	}
	if _, err := m.Refresh(context.Background(), now, p.RefreshToken, roles{}); err == nil || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected role lookup failure, got %v", err)
	}
}

func TestRoomMinter_MintAndParse(t *testing.T) {
	rm, err := NewRoomMinter(config.MediaConfig{RoomURL: "wss://media.example", APIKey: "key", APISecret: "s3cret"})
	if err != nil {
		t.Fatalf("minter: %v", err)
	}
	now := time.Unix(1700000000, 0)
	tok, err := rm.Mint(now, RoomGrant{Room: "agent-a1", Identity: "user-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tok.URL != "wss://media.example" || tok.ExpiresAt != now.Add(10*time.Minute).UTC() {
		t.Fatalf("unexpected token %+v", tok)
	}
	claims, err := rm.ParseRoomToken(tok.Token, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Video.Room != "agent-a1" || !claims.Video.RoomJoin {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := rm.Mint(now, RoomGrant{Room: "r"}); err == nil {
		t.Fatalf("expected identity required")
	}
	if _, err := NewRoomMinter(config.MediaConfig{APIKey: "key"}); err == nil {
		t.Fatalf("expected secret required")
	}
}

func TestRequireAccessToken_QueryFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newManager(t)
	p, _ := m.IssuePair(time.Now(), "u", "o", "member")

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		oid, _ := OrganizationID(c.Request.Context())
		c.String(200, oid)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?access_token="+p.AccessToken, nil))
	if w.Code != 200 || w.Body.String() != "o" {
		t.Fatalf("expected 200 o, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Basic abc")
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
