package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/callqueue"
	"voice-dashboard/internal/calls"
)

// ConversionOutcomes are call outcomes counted as conversions.
var ConversionOutcomes = map[string]bool{
	"converted":    true,
	"interested":   true,
	"booked":       true,
	"order_placed": true,
}

// Repository abstracts data access for reporting. Reads are organization-scoped.
type Repository interface {
	ListCalls(ctx context.Context, organizationID string, from, to time.Time, campaignID string) ([]calls.Call, error)
	CountQueue(ctx context.Context, organizationID, campaignID string) (map[callqueue.Status]int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.OrganizationID == "" {
		return CallsSummary{}, apperrors.Validation("organization_id", "is required")
	}
	if !req.Range.Valid() {
		return CallsSummary{}, apperrors.Validation("range", "from and to are required and to must be after from")
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.OrganizationID, req.Range.From, req.Range.To, req.CampaignID)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{
		OrganizationID: req.OrganizationID,
		CampaignID:     req.CampaignID,
		ByType:         map[string]int{},
		BySentiment:    map[string]int{},
		Daily:          []DailyCount{},
	}
	daily := map[string]int{}
	scoreSum, scored := 0.0, 0
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch c.Status {
		case calls.StatusCompleted:
			out.CompletedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusCanceled:
			out.CanceledCalls++
		case calls.StatusInProgress:
			out.InProgressCalls++
		}
		if c.CallType != "" {
			out.ByType[string(c.CallType)]++
		}
		if c.SentimentLabel != "" {
			out.BySentiment[c.SentimentLabel]++
		}
		if c.SentimentScore != nil {
			scoreSum += *c.SentimentScore
			scored++
		}
		daily[c.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	if scored > 0 {
		avg := scoreSum / float64(scored)
		out.AverageScore = &avg
	}
	for d, n := range daily {
		out.Daily = append(out.Daily, DailyCount{Date: d, Calls: n})
	}
	sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date < out.Daily[j].Date })
	return out, nil
}

func (s *Service) CampaignStats(ctx context.Context, req CampaignStatsRequest) (CampaignStats, error) {
	if req.OrganizationID == "" || req.CampaignID == "" {
		return CampaignStats{}, apperrors.Validation("campaign_id", "organization and campaign are required")
	}
	if !req.Range.Valid() {
		return CampaignStats{}, apperrors.Validation("range", "from and to are required and to must be after from")
	}
	if s.repo == nil {
		return CampaignStats{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.OrganizationID, req.Range.From, req.Range.To, req.CampaignID)
	if err != nil {
		return CampaignStats{}, err
	}
	queue, err := s.repo.CountQueue(ctx, req.OrganizationID, req.CampaignID)
	if err != nil {
		return CampaignStats{}, err
	}

	out := CampaignStats{OrganizationID: req.OrganizationID, CampaignID: req.CampaignID}
	out.CallsAttempted = len(rows)
	for _, c := range rows {
		if c.Connected() {
			out.CallsConnected++
		}
		if ConversionOutcomes[c.Outcome] {
			out.Conversions++
		}
	}
	if out.CallsAttempted > 0 {
		out.ConnectionRate = float64(out.CallsConnected) / float64(out.CallsAttempted)
		out.ConversionRate = float64(out.Conversions) / float64(out.CallsAttempted)
	}
	out.QueuePending = queue[callqueue.StatusPending]
	out.QueueProcessing = queue[callqueue.StatusProcessing]
	out.QueueFailed = queue[callqueue.StatusFailed]
	return out, nil
}
