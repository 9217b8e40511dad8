package bridge

import (
	"maps"
	"slices"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/api"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/config"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/nodetype"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// Node data keys owned by the codec. Everything else lands in NodeData.Extra.
const (
	keyID          = "id"
	keyType        = "type"
	keyName        = "name"
	keyDescription = "description"
	keyGroupParams = "group_params"
	keyConfig      = "config"
	keyBackEdge    = "back_edge"
)

// configGroup is the group_params entry that holds node configuration.
const configGroup = "config"

// legacyNodeType is the node type used by preset templates, where the kind
// lives only in data.type.
const legacyNodeType = "lgNode"

// Encode projects a workflow onto the stored document shape. The viewport
// is always the default one.
func Encode(w workflow.Workflow) api.Document {
	doc := api.Document{
		Nodes:    make([]api.Node, 0, len(w.Nodes)),
		Edges:    make([]api.Edge, 0, len(w.Edges)),
		Viewport: workflow.DefaultViewport,
	}
	for _, n := range w.Nodes {
		doc.Nodes = append(doc.Nodes, encodeNode(n))
	}
	for _, e := range w.Edges {
		doc.Edges = append(doc.Edges, encodeEdge(e))
	}
	return doc
}

func encodeNode(n workflow.Node) api.Node {
	data := make(map[string]any, len(n.Data.Extra)+5)
	maps.Copy(data, n.Data.Extra)
	data[keyID] = n.ID
	data[keyType] = n.Kind
	data[keyName] = n.Data.Name
	if n.Data.Description != "" {
		data[keyDescription] = n.Data.Description
	}
	data[keyGroupParams] = encodeParams(n.Kind, n.Data.Config)

	return api.Node{ID: n.ID, Type: n.Kind, Position: n.Position, Data: data}
}

// encodeParams orders params by registry field order, then the remaining
// keys sorted, so equal configs always encode identically.
func encodeParams(kind string, cfg map[string]any) []any {
	if len(cfg) == 0 {
		return []any{}
	}

	keys := make([]string, 0, len(cfg))
	for _, k := range nodetype.FieldKeys(kind) {
		if _, ok := cfg[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range cfg {
		if !slices.Contains(keys, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	keys = append(keys, rest...)

	params := make([]any, 0, len(keys))
	for _, k := range keys {
		params = append(params, map[string]any{"key": k, "value": cfg[k]})
	}
	return []any{map[string]any{"name": configGroup, "params": params}}
}

func encodeEdge(e workflow.Edge) api.Edge {
	data := make(map[string]any, len(e.Data)+1)
	maps.Copy(data, e.Data)
	data[keyBackEdge] = e.IsBackEdge
	return api.Edge{
		ID:           e.ID,
		Source:       e.Source,
		Target:       e.Target,
		SourceHandle: e.SourceHandle,
		TargetHandle: e.TargetHandle,
		Type:         e.Type,
		Data:         data,
	}
}

// Decode maps a stored document onto the client graph. It accepts both the
// editor's own output and older shapes: kind in data.type or in type, and
// configuration under group_params or a nested config object.
func Decode(doc api.Document) ([]workflow.Node, []workflow.Edge) {
	nodes := make([]workflow.Node, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes = append(nodes, decodeNode(n))
	}
	edges := make([]workflow.Edge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		edges = append(edges, decodeEdge(e))
	}
	return nodes, edges
}

func decodeNode(n api.Node) workflow.Node {
	data := config.New(n.Data)

	id := n.ID
	if id == "" {
		id = data.String(keyID, "")
	}
	kind := data.String(keyType, "")
	if kind == "" && n.Type != legacyNodeType {
		kind = n.Type
	}

	out := workflow.Node{
		ID:       id,
		Kind:     kind,
		Position: n.Position,
		Data: workflow.NodeData{
			Name:        data.String(keyName, ""),
			Description: data.String(keyDescription, ""),
			Config:      decodeParams(data),
		},
	}

	for k, v := range n.Data {
		switch k {
		case keyID, keyType, keyName, keyDescription, keyGroupParams, keyConfig:
			continue
		}
		if out.Data.Extra == nil {
			out.Data.Extra = make(map[string]any)
		}
		out.Data.Extra[k] = v
	}
	return out
}

// decodeParams merges every group_params group, the way the backend's node
// base class does, then falls back to a nested config object.
func decodeParams(data config.Config) map[string]any {
	cfg := make(map[string]any)

	groups, _ := data.Any(keyGroupParams, nil).([]any)
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		params, _ := group["params"].([]any)
		for _, p := range params {
			param, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if key, _ := param["key"].(string); key != "" {
				cfg[key] = param["value"]
			}
		}
	}
	if len(groups) > 0 {
		return cfg
	}

	if nested, ok := data.Map(keyConfig); ok {
		maps.Copy(cfg, nested.Raw())
	}
	return cfg
}

func decodeEdge(e api.Edge) workflow.Edge {
	data := config.New(e.Data)
	out := workflow.Edge{
		ID:           e.ID,
		Source:       e.Source,
		Target:       e.Target,
		SourceHandle: e.SourceHandle,
		TargetHandle: e.TargetHandle,
		Type:         e.Type,
		IsBackEdge:   data.Bool(keyBackEdge, false),
	}
	if e.Data != nil {
		out.Data = maps.Clone(e.Data)
	}
	return out
}
