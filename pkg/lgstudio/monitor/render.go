package monitor

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// RenderInspector writes the inspector view as plain text.
func RenderInspector(w io.Writer, v InspectorView) error {
	if v.Empty() {
		_, err := fmt.Fprintln(w, NoStateText)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "MESSAGES")
	if v.HiddenMessages > 0 {
		fmt.Fprintf(tw, "  (%d earlier)\n", v.HiddenMessages)
	}
	if len(v.Messages) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, m := range v.Messages {
		fmt.Fprintf(tw, "  %s\t%s\n", m.Type, oneLine(m.Content))
	}

	fmt.Fprintln(tw, "VARIABLES")
	if len(v.Variables) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, row := range v.Variables {
		fmt.Fprintf(tw, "  %s\t%s\n", row.Key, oneLine(row.Value))
	}

	fmt.Fprintln(tw, "EVENTS")
	if v.HiddenEvents > 0 {
		fmt.Fprintf(tw, "  (%d earlier)\n", v.HiddenEvents)
	}
	if len(v.Events) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, ev := range v.Events {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", Clock(ev.Time), ev.EventType, ev.NodeID, ev.Preview)
	}

	if len(v.NextNodes) > 0 {
		fmt.Fprintf(tw, "NEXT\t%s\n", strings.Join(v.NextNodes, ", "))
	}
	return tw.Flush()
}

// RenderTimeline writes the timeline as a numbered list, or the
// placeholder when there are no entries.
func RenderTimeline(w io.Writer, v TimelineView) error {
	if len(v.Entries) == 0 {
		text := v.Placeholder
		if text == "" {
			text = NoTimelineText
		}
		_, err := fmt.Fprintln(w, text)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range v.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Index, Clock(e.Time), e.EventType, e.Label)
	}
	return tw.Flush()
}

// Clock renders an event time, or dashes when the backend sent none.
func Clock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Format("15:04:05")
}

func oneLine(s string) string {
	return Truncate(strings.Join(strings.Fields(s), " "), MaxPreviewRunes)
}
