package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

func TestService_AppendRequiresOrganizationAndAction(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{Action: ActionSignup}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{OrganizationID: "o"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_RecordMarshalsDetails(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.Record(context.Background(), "o", "u", ActionCampaignStatus, "campaign", "c1", map[string]string{"from": "draft", "to": "running"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	var d map[string]string
	if err := json.Unmarshal(evs[0].Details, &d); err != nil || d["to"] != "running" {
		t.Fatalf("unexpected details %s", evs[0].Details)
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp filled")
	}
}

func TestService_ListFiltersNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	base := time.Unix(1700000000, 0).UTC()
	ctx := context.Background()

	_ = svc.Append(ctx, Event{OrganizationID: "o1", Action: ActionSignup, CreatedAt: base})
	_ = svc.Append(ctx, Event{OrganizationID: "o1", Action: ActionCampaignCreated, CreatedAt: base.Add(time.Minute)})
	_ = svc.Append(ctx, Event{OrganizationID: "o2", Action: ActionSignup, CreatedAt: base.Add(2 * time.Minute)})

	got, err := svc.List(ctx, Filter{OrganizationID: "o1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Action != ActionCampaignCreated {
		t.Fatalf("unexpected events %+v", got)
	}

	got, _ = svc.List(ctx, Filter{Action: ActionSignup, Limit: 1})
	if len(got) != 1 || got[0].OrganizationID != "o2" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestPGRepo_ListBuildsFilteredQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery(`FROM activity_logs\s+WHERE TRUE AND organization_id = \$1 AND action = \$2\s+ORDER BY created_at DESC\s+LIMIT \$3`).
		WithArgs("o1", "user.signup", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "organization_id", "user_id", "action", "entity_type", "entity_id", "ip_address", "details", "created_at"}).
			AddRow("e1", "o1", "u1", "user.signup", "organization", "o1", "", []byte(`{}`), now))

	got, err := NewPGRepo(mock).List(context.Background(), Filter{OrganizationID: "o1", Action: ActionSignup, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Action != ActionSignup || got[0].UserID != "u1" {
		t.Fatalf("unexpected events %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
