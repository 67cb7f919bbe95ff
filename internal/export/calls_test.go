package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, b []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	sheets := f.GetSheetList()
	require.Equal(t, []string{callsSheet}, sheets)
	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	return rows
}

func TestExporter_CallsWorkbook(t *testing.T) {
	score := 0.75
	at := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	src := calls.NewService(calls.NewMemoryRepo(
		calls.Call{ID: "c1", OrganizationID: "o1", CallType: calls.CallTypeOutbound, Status: calls.StatusCompleted,
			ToNumber: "+15550001111", DurationSeconds: 42, SentimentLabel: "positive", SentimentScore: &score, CreatedAt: at},
		calls.Call{ID: "c2", OrganizationID: "o1", CallType: calls.CallTypeInbound, Status: calls.StatusNoAnswer, CreatedAt: at.Add(time.Minute)},
		calls.Call{ID: "c3", OrganizationID: "o2", Status: calls.StatusCompleted, CreatedAt: at},
	))
	act := audit.NewMemoryRepo()
	var buf bytes.Buffer

	n, err := NewExporter(src, audit.NewService(act)).Calls(context.Background(), "o1", "u1", calls.Filter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Recording", rows[0][len(callColumns)-1])

	byID := map[string][]string{}
	for _, r := range rows[1:] {
		byID[r[0]] = r
	}
	require.Contains(t, byID, "c1")
	assert.Equal(t, "2026-04-02T10:30:00Z", byID["c1"][1])
	assert.Equal(t, "42", byID["c1"][7])
	assert.Equal(t, "0.75", byID["c1"][9])
	assert.Contains(t, byID, "c2")
	assert.NotContains(t, byID, "c3")

	require.Len(t, act.Events(), 1)
	assert.Equal(t, audit.ActionExport, act.Events()[0].Action)
}

func TestWriteCalls_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCalls(&buf, nil))
	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(callColumns))
}
