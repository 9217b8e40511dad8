package monitor

import (
	"time"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// timelineKinds are the event kinds shown on the timeline.
var timelineKinds = map[workflow.EventType]bool{
	workflow.EventNodeStart:     true,
	workflow.EventNodeEnd:       true,
	workflow.EventHumanInput:    true,
	workflow.EventWorkflowStart: true,
	workflow.EventWorkflowEnd:   true,
}

// TimelineEntry is one step on the timeline.
type TimelineEntry struct {
	Index     int
	EventType workflow.EventType
	NodeID    string
	Label     string
	Time      time.Time
}

// TimelineView is the debug timeline content. Placeholder is set exactly
// when Entries is empty.
type TimelineView struct {
	Entries     []TimelineEntry
	Placeholder string
}

// Timeline keeps the node and workflow boundary events in arrival order.
func Timeline(events []workflow.StreamEvent) TimelineView {
	var v TimelineView
	for _, ev := range events {
		if !timelineKinds[ev.EventType] {
			continue
		}
		v.Entries = append(v.Entries, TimelineEntry{
			Index:     len(v.Entries) + 1,
			EventType: ev.EventType,
			NodeID:    ev.NodeID,
			Label:     label(ev),
			Time:      eventTime(ev.Timestamp),
		})
	}
	if len(v.Entries) == 0 {
		v.Placeholder = NoTimelineText
	}
	return v
}

func label(ev workflow.StreamEvent) string {
	switch {
	case ev.NodeName != "":
		return ev.NodeName
	case ev.NodeID != "":
		return ev.NodeID
	case ev.EventType == workflow.EventWorkflowStart:
		return "start"
	case ev.EventType == workflow.EventWorkflowEnd:
		return "end"
	}
	return string(ev.EventType)
}
