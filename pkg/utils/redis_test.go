package utils

import (
	"context"
	"testing"
	"time"
)

func TestConcurrencyScriptsCompile(t *testing.T) {
	if concurrencyAcquireScript == nil || concurrencyReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestConcurrencyCap_KeyPrefix(t *testing.T) {
	c := NewConcurrencyCap(nil, "queue", time.Minute)
	if got := c.key("camp-1"); got != "queue:camp-1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := NewConcurrencyCap(nil, "", 0).key("x"); got != "x" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestConcurrencyCap_RejectsWithoutClient(t *testing.T) {
	c := NewConcurrencyCap(nil, "queue", time.Minute)
	if _, err := c.Acquire(context.Background(), "k", "h1", 1); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := c.Release(context.Background(), "k", "h1"); err == nil {
		t.Fatalf("expected error")
	}
}
