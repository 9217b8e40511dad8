package workflow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	w := New()
	assert.Empty(t, w.ID)
	assert.Equal(t, DefaultName, w.Name)
	assert.Equal(t, DefaultViewport, w.Viewport)
	assert.Empty(t, w.Nodes)
	assert.Empty(t, w.Edges)
}

func TestNewNodeID(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	orig := now
	now = func() time.Time { return fixed }
	defer func() { now = orig }()

	a := NewNodeID("llm")
	b := NewNodeID("llm")

	assert.NotEqual(t, a, b, "same millisecond must still give distinct IDs")
	assert.True(t, strings.HasPrefix(a, "llm_loyw3v28_"), a)

	parts := strings.Split(b, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "llm", parts[0])
}

func TestNewNodeID_KindWithUnderscore(t *testing.T) {
	id := NewNodeID("map_reduce")
	assert.True(t, strings.HasPrefix(id, "map_reduce_"))
}

func TestNewEdgeID(t *testing.T) {
	orig := now
	now = func() time.Time { return time.UnixMilli(42) }
	defer func() { now = orig }()

	assert.Equal(t, "e_a_b_42", NewEdgeID("a", "b"))
}

func TestClone_Independent(t *testing.T) {
	w := New()
	w.Nodes = []Node{{ID: "n1", Kind: "llm", Data: NodeData{Config: map[string]any{"k": "v"}}}}
	w.Edges = []Edge{{ID: "e1", Source: "n1", Target: "n1", Data: map[string]any{"x": 1}}}

	c := w.Clone()
	c.Nodes[0].Data.Config["k"] = "changed"
	c.Nodes[0].Position.X = 99
	c.Edges[0].Data["x"] = 2

	assert.Equal(t, "v", w.Nodes[0].Data.Config["k"])
	assert.Equal(t, 0.0, w.Nodes[0].Position.X)
	assert.Equal(t, 1, w.Edges[0].Data["x"])
}

func TestNodeIndex(t *testing.T) {
	nodes := []Node{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 0, NodeIndex(nodes, "a"))
	assert.Equal(t, 1, NodeIndex(nodes, "b"))
	assert.Equal(t, -1, NodeIndex(nodes, "c"))

	n, ok := FindNode(nodes, "b")
	assert.True(t, ok)
	assert.Equal(t, "b", n.ID)
}

func TestRunState_Clone(t *testing.T) {
	r := RunState{StreamEvents: []StreamEvent{{EventType: EventNodeStart}}}
	c := r.Clone()
	c.StreamEvents[0].EventType = EventError
	assert.Equal(t, EventNodeStart, r.StreamEvents[0].EventType)
}

func TestCheck(t *testing.T) {
	t.Run("valid graph", func(t *testing.T) {
		w := Workflow{
			Nodes: []Node{{ID: "a"}, {ID: "b"}},
			Edges: []Edge{{ID: "e1", Source: "a", Target: "b"}},
		}
		assert.NoError(t, Check(w))
	})

	t.Run("dangling edge", func(t *testing.T) {
		w := Workflow{
			Nodes: []Node{{ID: "a"}},
			Edges: []Edge{{ID: "e1", Source: "a", Target: "ghost"}},
		}
		err := Check(w)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNodeNotFound))
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("duplicates", func(t *testing.T) {
		w := Workflow{
			Nodes: []Node{{ID: "a"}, {ID: "a"}},
			Edges: []Edge{{ID: "e", Source: "a", Target: "a"}, {ID: "e", Source: "a", Target: "a"}},
		}
		err := Check(w)
		assert.True(t, errors.Is(err, ErrDuplicateNode))
		assert.True(t, errors.Is(err, ErrDuplicateEdge))
	})
}

func TestValidate(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		r := Validate(New())
		assert.False(t, r.Valid)
		assert.Contains(t, r.Errors, "Workflow must have at least one node")
		assert.Contains(t, r.Errors, "Workflow must have a Start node")
		assert.Contains(t, r.Errors, "Workflow must have an End node")
	})

	t.Run("linear graph is valid", func(t *testing.T) {
		w := Workflow{
			Nodes: []Node{{ID: "s", Kind: "start"}, {ID: "l", Kind: "llm"}, {ID: "e", Kind: "end"}},
			Edges: []Edge{{ID: "1", Source: "s", Target: "l"}, {ID: "2", Source: "l", Target: "e"}},
		}
		r := Validate(w)
		assert.True(t, r.Valid)
		assert.Empty(t, r.Errors)
		assert.Empty(t, r.Warnings)
	})

	t.Run("disconnected and back edge warnings", func(t *testing.T) {
		w := Workflow{
			Nodes: []Node{
				{ID: "s", Kind: "start"},
				{ID: "l", Kind: "llm"},
				{ID: "t", Kind: "tool"},
				{ID: "r", Kind: "reflection"},
				{ID: "x", Kind: "code"},
				{ID: "e", Kind: "end"},
			},
			Edges: []Edge{
				{ID: "1", Source: "s", Target: "l"},
				{ID: "2", Source: "l", Target: "r"},
				{ID: "3", Source: "r", Target: "l", IsBackEdge: true},
				{ID: "4", Source: "t", Target: "l", IsBackEdge: true},
			},
		}
		r := Validate(w)
		assert.True(t, r.Valid)
		assert.Equal(t, []string{
			"Disconnected nodes: x",
			"Back-edge from t (tool) - ensure exit condition exists",
		}, r.Warnings)
	})
}
