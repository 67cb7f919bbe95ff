package reporting

import (
	"context"
	"testing"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/callqueue"
	"voice-dashboard/internal/calls"
)

func ptr(f float64) *float64 { return &f }

func TestReporting_OrganizationIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Calls = []calls.Call{
		{ID: "c1", OrganizationID: "o1", CampaignID: "camp", Status: calls.StatusCompleted, DurationSeconds: 30, CreatedAt: now},
		{ID: "c2", OrganizationID: "o2", CampaignID: "camp", Status: calls.StatusCompleted, DurationSeconds: 50, CreatedAt: now},
	}
	svc := NewService(repo)

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{OrganizationID: "o1", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 1 {
		t.Fatalf("expected 1 call, got %d", out.TotalCalls)
	}
}

func TestReporting_CallsSummaryAggregates(t *testing.T) {
	repo := NewMemoryRepo()
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	repo.Calls = []calls.Call{
		{ID: "c1", OrganizationID: "o", Status: calls.StatusCompleted, CallType: calls.CallTypeOutbound, DurationSeconds: 60, SentimentLabel: "positive", SentimentScore: ptr(0.9), RecordingURL: "r", CreatedAt: day1},
		{ID: "c2", OrganizationID: "o", Status: calls.StatusNoAnswer, CallType: calls.CallTypeOutbound, CreatedAt: day1},
		{ID: "c3", OrganizationID: "o", Status: calls.StatusCompleted, CallType: calls.CallTypeWebcall, DurationSeconds: 30, SentimentLabel: "negative", SentimentScore: ptr(0.1), CreatedAt: day2},
	}
	out, err := NewService(repo).CallsSummary(context.Background(), CallsSummaryRequest{OrganizationID: "o", Range: TimeRange{From: day1.Add(-time.Hour), To: day2.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.CompletedCalls != 2 || out.NoAnswerCalls != 1 || out.AverageDurationSeconds != 30 || out.RecordedCalls != 1 {
		t.Fatalf("unexpected summary %+v", out)
	}
	if out.ByType["outbound"] != 2 || out.BySentiment["negative"] != 1 {
		t.Fatalf("unexpected breakdown %+v %+v", out.ByType, out.BySentiment)
	}
	if out.AverageScore == nil || *out.AverageScore < 0.49 || *out.AverageScore > 0.51 {
		t.Fatalf("unexpected average score %v", out.AverageScore)
	}
	if len(out.Daily) != 2 || out.Daily[0].Date != "2026-03-01" || out.Daily[0].Calls != 2 {
		t.Fatalf("unexpected daily %+v", out.Daily)
	}
}

func TestReporting_InvalidRange(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	now := time.Now()
	_, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{OrganizationID: "o", Range: TimeRange{From: now, To: now}})
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReporting_CampaignStats(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Calls = []calls.Call{
		{ID: "c1", OrganizationID: "o", CampaignID: "camp", Status: calls.StatusCompleted, Outcome: "converted", CreatedAt: now},
		{ID: "c2", OrganizationID: "o", CampaignID: "camp", Status: calls.StatusCompleted, Outcome: "not_interested", CreatedAt: now},
		{ID: "c3", OrganizationID: "o", CampaignID: "camp", Status: calls.StatusBusy, CreatedAt: now},
		{ID: "c4", OrganizationID: "o", CampaignID: "other", Status: calls.StatusCompleted, Outcome: "converted", CreatedAt: now},
	}
	repo.Queue = []callqueue.Item{
		{ID: "q1", OrganizationID: "o", CampaignID: "camp", Status: callqueue.StatusPending},
		{ID: "q2", OrganizationID: "o", CampaignID: "camp", Status: callqueue.StatusPending},
		{ID: "q3", OrganizationID: "o", CampaignID: "camp", Status: callqueue.StatusFailed},
	}
	out, err := NewService(repo).CampaignStats(context.Background(), CampaignStatsRequest{
		OrganizationID: "o", CampaignID: "camp", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.CallsAttempted != 3 || out.CallsConnected != 2 || out.Conversions != 1 {
		t.Fatalf("unexpected stats %+v", out)
	}
	if out.QueuePending != 2 || out.QueueFailed != 1 {
		t.Fatalf("unexpected queue counts %+v", out)
	}
	if out.ConversionRate < 0.33 || out.ConversionRate > 0.34 {
		t.Fatalf("unexpected conversion rate %v", out.ConversionRate)
	}
}
