package workflow

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

// nodeCounter makes node IDs unique within a process even when two nodes are
// created in the same millisecond.
var nodeCounter atomic.Uint64

// now is replaced in tests.
var now = time.Now

// NewNodeID returns an ID of the form {kind}_{base36 millis}_{counter}.
func NewNodeID(kind string) string {
	ts := strconv.FormatInt(now().UnixMilli(), 36)
	return fmt.Sprintf("%s_%s_%d", kind, ts, nodeCounter.Add(1))
}

// NewEdgeID returns an ID of the form e_{source}_{target}_{millis}.
// Two calls for the same pair within one millisecond return the same ID.
func NewEdgeID(source, target string) string {
	return fmt.Sprintf("e_%s_%s_%d", source, target, now().UnixMilli())
}
