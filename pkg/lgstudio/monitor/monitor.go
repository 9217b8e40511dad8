// Package monitor turns run state into read-only views: the state inspector
// and the debug timeline. Nothing here mutates the store or the graph, and
// empty input always yields a placeholder view rather than an error.
package monitor

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/config"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// View limits.
const (
	MaxMessages     = 10
	MaxEvents       = 20
	MaxPreviewRunes = 120
)

// Placeholder texts.
const (
	NoStateText    = "No state data yet"
	NoTimelineText = "No execution events yet"
)

// VariableRow is one flattened nodeID.key entry.
type VariableRow struct {
	Key   string
	Value string
}

// EventRow is one stream event prepared for display.
type EventRow struct {
	EventType workflow.EventType
	NodeID    string
	NodeName  string
	Preview   string
	Time      time.Time
}

// InspectorView is the state inspector content.
type InspectorView struct {
	Messages       []workflow.Message
	HiddenMessages int
	Variables      []VariableRow
	Events         []EventRow
	HiddenEvents   int
	NextNodes      []string
}

// Empty reports whether there is nothing to show.
func (v InspectorView) Empty() bool {
	return len(v.Messages) == 0 && len(v.Variables) == 0 && len(v.Events) == 0
}

// Inspect builds the state inspector view. Only the last MaxMessages
// messages and the last MaxEvents events are kept; the rest are counted.
func Inspect(run workflow.RunState) InspectorView {
	var v InspectorView

	if s := run.StateData; s != nil {
		msgs := s.Messages
		if len(msgs) > MaxMessages {
			v.HiddenMessages = len(msgs) - MaxMessages
			msgs = msgs[len(msgs)-MaxMessages:]
		}
		v.Messages = slices.Clone(msgs)
		v.Variables = flatten(s.Variables)
		v.NextNodes = slices.Clone(s.NextNodes)
	}

	events := run.StreamEvents
	if len(events) > MaxEvents {
		v.HiddenEvents = len(events) - MaxEvents
		events = events[len(events)-MaxEvents:]
	}
	for _, ev := range events {
		v.Events = append(v.Events, EventRow{
			EventType: ev.EventType,
			NodeID:    ev.NodeID,
			NodeName:  ev.NodeName,
			Preview:   Preview(ev.Data),
			Time:      eventTime(ev.Timestamp),
		})
	}
	return v
}

// flatten turns {node: {key: value}} into sorted node.key rows. A node
// whose value is not an object becomes a single row keyed by the node ID.
func flatten(vars map[string]any) []VariableRow {
	var rows []VariableRow
	for nodeID, raw := range vars {
		inner, ok := raw.(map[string]any)
		if !ok {
			rows = append(rows, VariableRow{Key: nodeID, Value: config.FormatValue(raw)})
			continue
		}
		for key, val := range inner {
			rows = append(rows, VariableRow{Key: nodeID + "." + key, Value: config.FormatValue(val)})
		}
	}
	slices.SortFunc(rows, func(a, b VariableRow) int { return strings.Compare(a.Key, b.Key) })
	return rows
}

// Preview renders event data on one line, cut to MaxPreviewRunes.
func Preview(data any) string {
	if data == nil {
		return ""
	}
	s := strings.Join(strings.Fields(config.FormatValue(data)), " ")
	return Truncate(s, MaxPreviewRunes)
}

// Truncate cuts s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

func eventTime(ts float64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	sec := int64(ts)
	return time.Unix(sec, int64((ts-float64(sec))*1e9)).UTC()
}
