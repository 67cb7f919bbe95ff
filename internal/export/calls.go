// Package export renders call logs as spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/calls"
	"voice-dashboard/pkg/logger"

	"github.com/xuri/excelize/v2"
)

const callsSheet = "Calls"

// MaxRows bounds one export.
const MaxRows = 50000

var callColumns = []string{
	"ID", "Created At", "Type", "Status", "Outcome", "From", "To",
	"Duration (s)", "Sentiment", "Sentiment Score", "Campaign", "Agent", "Recording",
}

// CallSource pages through calls. *calls.Service satisfies it.
type CallSource interface {
	List(ctx context.Context, organizationID string, f calls.Filter) ([]calls.Call, error)
}

// ActivityRecorder is satisfied by *audit.Service.
type ActivityRecorder interface {
	Record(ctx context.Context, organizationID, userID string, action audit.Action, entityType, entityID string, details any) error
}

type Exporter struct {
	calls    CallSource
	activity ActivityRecorder
}

func NewExporter(src CallSource, activity ActivityRecorder) *Exporter {
	return &Exporter{calls: src, activity: activity}
}

// Calls writes every call matching f to w as an XLSX workbook and returns the
// number of data rows written.
func (e *Exporter) Calls(ctx context.Context, organizationID, userID string, f calls.Filter, w io.Writer) (int, error) {
	rows := make([]calls.Call, 0)
	f.Limit, f.Offset = calls.MaxLimit, 0
	for len(rows) < MaxRows {
		page, err := e.calls.List(ctx, organizationID, f)
		if err != nil {
			return 0, err
		}
		rows = append(rows, page...)
		if len(page) < f.Limit {
			break
		}
		f.Offset += len(page)
	}
	if len(rows) > MaxRows {
		rows = rows[:MaxRows]
	}

	if err := WriteCalls(w, rows); err != nil {
		return 0, err
	}
	if e.activity != nil {
		if err := e.activity.Record(ctx, organizationID, userID, audit.ActionExport, "calls", "", map[string]any{"rows": len(rows)}); err != nil {
			logger.From(ctx).Warn("activity record failed", "action", audit.ActionExport, "err", err)
		}
	}
	return len(rows), nil
}

// WriteCalls renders cs as a single-sheet workbook.
func WriteCalls(w io.Writer, cs []calls.Call) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", callsSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(callsSheet)
	if err != nil {
		return err
	}

	header := make([]any, len(callColumns))
	for i, c := range callColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, c := range cs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, callRow(c)); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func callRow(c calls.Call) []any {
	var score any = ""
	if c.SentimentScore != nil {
		score = *c.SentimentScore
	}
	return []any{
		c.ID,
		c.CreatedAt.UTC().Format(time.RFC3339),
		string(c.CallType),
		string(c.Status),
		c.Outcome,
		c.FromNumber,
		c.ToNumber,
		c.DurationSeconds,
		c.SentimentLabel,
		score,
		c.CampaignID,
		c.AgentID,
		c.RecordingURL,
	}
}
