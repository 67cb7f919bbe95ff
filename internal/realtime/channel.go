package realtime

import (
	"fmt"
	"strings"
)

const topicPrefix = "realtime:"

// Filter is an equality row filter written as "column=eq.value".
// The zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses "column=eq.value". An empty string yields the zero Filter.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Filter{}, nil
	}
	col, rest, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return Filter{}, fmt.Errorf("realtime: filter %q: expected column=eq.value", s)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return Filter{}, fmt.Errorf("realtime: filter %q: only eq is supported", s)
	}
	if val == "" {
		return Filter{}, fmt.Errorf("realtime: filter %q: empty value", s)
	}
	return Filter{Column: col, Value: val}, nil
}

func Eq(column, value string) Filter { return Filter{Column: column, Value: value} }

func (f Filter) IsZero() bool { return f.Column == "" }

func (f Filter) String() string {
	if f.IsZero() {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

// ChannelKey identifies one upstream subscription.
type ChannelKey struct {
	Table  string
	Filter Filter
}

func NewChannelKey(table, filter string) (ChannelKey, error) {
	if strings.TrimSpace(table) == "" {
		return ChannelKey{}, fmt.Errorf("realtime: table is required")
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return ChannelKey{}, err
	}
	return ChannelKey{Table: table, Filter: f}, nil
}

// Topic is the broker topic for this key: realtime:<table>[:<filter>].
func (k ChannelKey) Topic() string {
	if k.Filter.IsZero() {
		return topicPrefix + k.Table
	}
	return topicPrefix + k.Table + ":" + k.Filter.String()
}

func (k ChannelKey) String() string { return k.Topic() }

// Matches reports whether c belongs on this channel.
func (k ChannelKey) Matches(c Change) bool {
	if c.Table != k.Table {
		return false
	}
	if k.Filter.IsZero() {
		return true
	}
	v, ok := c.Column(k.Filter.Column)
	if ok && v == k.Filter.Value {
		return true
	}
	// An UPDATE moving a row out of the filter is still relevant to the old scope.
	if c.Type == Update {
		if v, ok := column(c.OldRecord, k.Filter.Column); ok && v == k.Filter.Value {
			return true
		}
	}
	return false
}

// TopicsFor lists every topic c should be published on: the table topic plus
// one per scoping column present in the row.
func TopicsFor(c Change, scopes []string) []string {
	topics := []string{ChannelKey{Table: c.Table}.Topic()}
	seen := map[string]struct{}{topics[0]: {}}
	add := func(col, val string) {
		t := ChannelKey{Table: c.Table, Filter: Eq(col, val)}.Topic()
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	for _, col := range scopes {
		if v, ok := c.Column(col); ok {
			add(col, v)
		}
		if c.Type == Update {
			if v, ok := column(c.OldRecord, col); ok {
				add(col, v)
			}
		}
	}
	return topics
}
