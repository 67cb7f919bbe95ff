package notify

import (
	"context"
	"testing"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/pkg/logger"
)

func TestService_NotifyPersistsOnlyAddressed(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, logger.Discard())
	ctx := context.Background()

	svc.Notify(ctx, Error("Fetch failed", "calls"))
	svc.Notify(ctx, Notification{UserID: "u1", OrganizationID: "o1", Title: "Welcome"})

	got, err := svc.List(ctx, "o1", "u1", false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Welcome" || got[0].Level != LevelInfo {
		t.Fatalf("unexpected notifications: %+v", got)
	}
}

func TestService_MarkRead(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, logger.Discard())
	ctx := context.Background()

	n, err := svc.Create(ctx, Notification{UserID: "u1", Title: "Hi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.MarkRead(ctx, "", "u1", n.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	unread, _ := svc.List(ctx, "", "u1", true)
	if len(unread) != 0 {
		t.Fatalf("expected no unread, got %d", len(unread))
	}
	if err := svc.MarkRead(ctx, "", "u2", n.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}

func TestService_CreateValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo(), logger.Discard())
	if _, err := svc.Create(context.Background(), Notification{Title: "x"}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
