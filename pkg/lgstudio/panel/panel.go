// Package panel models the node configuration form.
//
// A Form is seeded from one node's data and the registry fields for its
// kind. Edits are held as text until Apply writes a normalized data object
// back through the canvas controller.
package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/canvas"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/config"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/nodetype"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

var (
	// ErrNoSelection is returned when no node is selected.
	ErrNoSelection = errors.New("no node selected")

	// ErrUnknownField is returned by Set for a key the node kind does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidConfig is returned by ApplyRawJSON when the text is not a JSON object.
	ErrInvalidConfig = errors.New("invalid config JSON")
)

// Panel tracks the form for the selected node.
type Panel struct {
	canvas *canvas.Controller
	form   *Form
}

// New creates a panel bound to c.
func New(c *canvas.Controller) *Panel {
	return &Panel{canvas: c}
}

// Open selects nodeID and seeds a fresh form from its current data.
func (p *Panel) Open(nodeID string) (*Form, error) {
	if !p.canvas.SelectNode(nodeID) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
	}
	return p.seed(nodeID)
}

// Form returns the form for the currently selected node. The form is
// re-seeded whenever the selection has moved to a different node since the
// last call, so no values carry over between nodes.
func (p *Panel) Form() (*Form, error) {
	selected := p.canvas.Store().Snapshot().SelectedNodeID
	if selected == "" {
		p.form = nil
		return nil, ErrNoSelection
	}
	if p.form != nil && p.form.nodeID == selected {
		return p.form, nil
	}
	return p.seed(selected)
}

// Close closes the panel and clears the selection.
func (p *Panel) Close() {
	p.form = nil
	p.canvas.PaneClick()
}

func (p *Panel) seed(nodeID string) (*Form, error) {
	node, ok := workflow.FindNode(p.canvas.Store().Workflow().Nodes, nodeID)
	if !ok {
		p.form = nil
		return nil, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
	}
	p.form = newForm(p.canvas, node)
	return p.form, nil
}

// FormField is one editable field with its current text.
type FormField struct {
	nodetype.Field
	Value string

	// seed is the text the field was seeded with and stored the typed value
	// it came from, so untouched fields are written back unchanged.
	seed   string
	stored any
	had    bool
}

func (ff *FormField) reseed(cfg map[string]any) {
	v, ok := cfg[ff.Key]
	ff.had = ok && v != nil
	ff.stored = v
	ff.seed = config.New(cfg).Text(ff.Key, config.FormatValue(ff.Default))
	ff.Value = ff.seed
}

// value returns what Apply stores for the field. ok is false when the key
// should be absent from the config.
func (ff FormField) value() (v any, ok bool) {
	if ff.had && ff.Value == ff.seed {
		return ff.stored, true
	}
	if ff.Kind == nodetype.FieldNumber && strings.TrimSpace(ff.Value) == "" {
		return nil, false
	}
	if _, text := ff.stored.(string); ff.had && !text {
		if err := json.Unmarshal([]byte(ff.Value), &v); err == nil {
			return v, true
		}
	}
	return coerce(ff.Kind, ff.Value), true
}

// Form is the editable state for one node.
type Form struct {
	canvas      *canvas.Controller
	nodeID      string
	kind        string
	Name        string
	Description string
	Fields      []FormField
}

func newForm(c *canvas.Controller, node workflow.Node) *Form {
	f := &Form{
		canvas:      c,
		nodeID:      node.ID,
		kind:        node.Kind,
		Name:        node.Data.Name,
		Description: node.Data.Description,
	}
	for _, field := range nodetype.Fields(node.Kind) {
		ff := FormField{Field: field}
		ff.reseed(node.Data.Config)
		f.Fields = append(f.Fields, ff)
	}
	return f
}

// NodeID returns the node this form edits.
func (f *Form) NodeID() string { return f.nodeID }

// Kind returns the node kind.
func (f *Form) Kind() string { return f.kind }

// Value returns the current text of a field.
func (f *Form) Value(key string) (string, bool) {
	for _, ff := range f.Fields {
		if ff.Key == key {
			return ff.Value, true
		}
	}
	return "", false
}

// Set changes the text of a declared field.
func (f *Form) Set(key, text string) error {
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			f.Fields[i].Value = text
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, f.kind, key)
}

// Values returns the declared fields coerced to their stored form.
//
// A field whose text is unchanged keeps the value it was seeded from, so
// lists and objects loaded from the backend keep their type. An edited field
// that held a non-string value is parsed back as JSON. Number fields that
// parse as a float are stored as float64, and empty number fields are left
// out so the backend default applies. Anything else, including malformed
// numbers, is stored as the text typed.
func (f *Form) Values() map[string]any {
	out := make(map[string]any, len(f.Fields))
	for _, ff := range f.Fields {
		if v, ok := ff.value(); ok {
			out[ff.Key] = v
		}
	}
	return out
}

func coerce(kind nodetype.FieldKind, text string) any {
	if kind != nodetype.FieldNumber {
		return text
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
		return n
	}
	return text
}

// Apply writes {existing data, name, description, declared fields} to the
// node. Config keys the kind does not declare are kept; declared fields left
// out by Values are removed.
func (f *Form) Apply() (workflow.NodeData, error) {
	node, err := f.current()
	if err != nil {
		return workflow.NodeData{}, err
	}

	data := node.Data.Clone()
	data.Name = f.Name
	data.Description = f.Description
	if data.Config == nil {
		data.Config = make(map[string]any, len(f.Fields))
	}
	values := f.Values()
	for _, ff := range f.Fields {
		if _, ok := values[ff.Key]; !ok {
			delete(data.Config, ff.Key)
		}
	}
	maps.Copy(data.Config, values)

	if !f.canvas.UpdateNodeData(f.nodeID, data) {
		return workflow.NodeData{}, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, f.nodeID)
	}
	f.reseed(data.Config)
	return data, nil
}

func (f *Form) reseed(cfg map[string]any) {
	for i := range f.Fields {
		f.Fields[i].reseed(cfg)
	}
}

// ApplyRawJSON replaces the node's config with a JSON object typed by hand.
// On a parse error nothing is written and the previous config stays.
func (f *Form) ApplyRawJSON(text string) (workflow.NodeData, error) {
	var cfg map[string]any
	if err := json.Unmarshal([]byte(text), &cfg); err != nil {
		return workflow.NodeData{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg == nil {
		return workflow.NodeData{}, fmt.Errorf("%w: expected an object", ErrInvalidConfig)
	}

	node, err := f.current()
	if err != nil {
		return workflow.NodeData{}, err
	}

	data := node.Data.Clone()
	data.Name = f.Name
	data.Description = f.Description
	data.Config = cfg

	if !f.canvas.UpdateNodeData(f.nodeID, data) {
		return workflow.NodeData{}, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, f.nodeID)
	}

	// keep the form in step with what was written
	f.reseed(cfg)
	return data, nil
}

// RawJSON renders the node's current config as indented JSON for raw editing.
func (f *Form) RawJSON() (string, error) {
	node, err := f.current()
	if err != nil {
		return "", err
	}
	cfg := node.Data.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (f *Form) current() (workflow.Node, error) {
	node, ok := workflow.FindNode(f.canvas.Store().Workflow().Nodes, f.nodeID)
	if !ok {
		return workflow.Node{}, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, f.nodeID)
	}
	return node, nil
}
