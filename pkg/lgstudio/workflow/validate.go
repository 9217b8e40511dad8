package workflow

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Sentinel errors for structural checks.
var (
	// ErrNodeNotFound indicates an edge references a node that is not in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates two nodes share an ID.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrDuplicateEdge indicates two edges share an ID.
	ErrDuplicateEdge = errors.New("duplicate edge ID")
)

// Node kinds with structural meaning for validation.
const (
	KindStart = "start"
	KindEnd   = "end"
)

// loopingKinds may legitimately be the source of a back edge because they
// carry their own exit condition.
var loopingKinds = map[string]bool{
	"condition":  true,
	"loop":       true,
	"reflection": true,
	"supervisor": true,
}

// Check verifies the graph invariants: unique node and edge IDs and edge
// endpoints that exist. Multiple violations are joined together.
func Check(w Workflow) error {
	var errs []error

	nodeIDs := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if nodeIDs[n.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID))
		}
		nodeIDs[n.ID] = true
	}

	edgeIDs := make(map[string]bool, len(w.Edges))
	for _, e := range w.Edges {
		if edgeIDs[e.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID))
		}
		edgeIDs[e.ID] = true

		if !nodeIDs[e.Source] {
			errs = append(errs, fmt.Errorf("%w: edge %s source '%s'", ErrNodeNotFound, e.ID, e.Source))
		}
		if !nodeIDs[e.Target] {
			errs = append(errs, fmt.Errorf("%w: edge %s target '%s'", ErrNodeNotFound, e.ID, e.Target))
		}
	}

	return errors.Join(errs...)
}

// Report is the outcome of Validate. It has the same shape as the backend
// validation result so either can be shown to the user.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate lints a graph before it is sent to the backend.
//
// Errors:
//   - the graph has no nodes
//   - there is no start node or no end node
//   - any Check violation
//
// Warnings:
//   - nodes other than start/end that no edge touches
//   - back edges leaving a node kind that has no exit condition of its own
func Validate(w Workflow) Report {
	r := Report{Errors: []string{}, Warnings: []string{}}

	if len(w.Nodes) == 0 {
		r.Errors = append(r.Errors, "Workflow must have at least one node")
	}

	hasStart := slices.ContainsFunc(w.Nodes, func(n Node) bool { return n.Kind == KindStart })
	hasEnd := slices.ContainsFunc(w.Nodes, func(n Node) bool { return n.Kind == KindEnd })
	if !hasStart {
		r.Errors = append(r.Errors, "Workflow must have a Start node")
	}
	if !hasEnd {
		r.Errors = append(r.Errors, "Workflow must have an End node")
	}

	if err := Check(w); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			r.Errors = append(r.Errors, line)
		}
	}

	connected := make(map[string]bool)
	for _, e := range w.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}
	var disconnected []string
	for _, n := range w.Nodes {
		if n.Kind == KindStart || n.Kind == KindEnd {
			continue
		}
		if !connected[n.ID] {
			disconnected = append(disconnected, n.ID)
		}
	}
	if len(disconnected) > 0 {
		slices.Sort(disconnected)
		r.Warnings = append(r.Warnings, "Disconnected nodes: "+strings.Join(disconnected, ", "))
	}

	warned := make(map[string]bool)
	for _, e := range w.Edges {
		if !e.IsBackEdge || warned[e.Source] {
			continue
		}
		warned[e.Source] = true
		src, ok := FindNode(w.Nodes, e.Source)
		if !ok || loopingKinds[src.Kind] {
			continue
		}
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("Back-edge from %s (%s) - ensure exit condition exists", src.ID, src.Kind))
	}

	r.Valid = len(r.Errors) == 0
	return r
}
