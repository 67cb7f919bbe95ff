// Package realtime carries row-level change events from Postgres to in-process consumers.
//
// A change flows: trigger -> NOTIFY -> PGBridge -> Transport (redis|nats) -> Registry -> Subscription.
package realtime

import (
	"encoding/json"
	"strconv"
	"time"
)

type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

func (t ChangeType) Valid() bool {
	switch t {
	case Insert, Update, Delete:
		return true
	default:
		return false
	}
}

// Change is a single row-level change. Record is the new row (nil for DELETE),
// OldRecord the previous row when the source provides it.
type Change struct {
	Table           string          `json:"table"`
	Type            ChangeType      `json:"type"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Row returns the record that identifies the changed row: OldRecord for DELETE, Record otherwise.
func (c Change) Row() json.RawMessage {
	if c.Type == Delete && len(c.OldRecord) > 0 {
		return c.OldRecord
	}
	if len(c.Record) > 0 {
		return c.Record
	}
	return c.OldRecord
}

// RecordID returns the "id" column of the changed row.
func (c Change) RecordID() string {
	v, _ := c.Column("id")
	return v
}

// Column returns a scalar column of the changed row rendered as a string.
func (c Change) Column(name string) (string, bool) {
	return column(c.Row(), name)
}

func column(raw json.RawMessage, name string) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", false
	}
	v, ok := m[name]
	if !ok {
		return "", false
	}
	return scalar(v)
}

func scalar(v json.RawMessage) (string, bool) {
	if len(v) == 0 || string(v) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	return "", false
}
