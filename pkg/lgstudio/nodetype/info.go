package nodetype

import (
	"slices"
	"sort"
)

// Info is the node-type description served by the backend's node-types
// endpoint.
type Info struct {
	Type          string               `json:"type" yaml:"type"`
	Name          string               `json:"name" yaml:"name"`
	Description   string               `json:"description" yaml:"description"`
	Category      string               `json:"category" yaml:"category"`
	ConfigSchema  map[string]FieldInfo `json:"config_schema" yaml:"config_schema"`
	HasInput      bool                 `json:"has_input" yaml:"has_input"`
	HasOutput     bool                 `json:"has_output" yaml:"has_output"`
	SupportsCycle bool                 `json:"supports_cycle" yaml:"supports_cycle"`
}

// FieldInfo is one config_schema entry. Type is the backend widget name
// (model_select, textarea, slider, ...), which is wider than FieldKind.
type FieldInfo struct {
	Type    string   `json:"type" yaml:"type"`
	Label   string   `json:"label" yaml:"label"`
	Default any      `json:"default,omitempty" yaml:"default,omitempty"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// widgetKinds maps backend widget names onto field kinds. Anything not
// listed is edited as plain text.
var widgetKinds = map[string]FieldKind{
	"textarea":        FieldTextarea,
	"code_editor":     FieldTextarea,
	"form":            FieldTextarea,
	"mapping":         FieldTextarea,
	"condition_cases": FieldTextarea,
	"number":          FieldNumber,
	"slider":          FieldNumber,
	"select":          FieldSelect,
}

// KindForWidget returns the field kind used to edit a backend widget.
func KindForWidget(widget string) FieldKind {
	if k, ok := widgetKinds[widget]; ok {
		return k
	}
	return FieldText
}

// ToInfo converts a Spec into the backend catalog shape.
func ToInfo(s Spec) Info {
	schema := make(map[string]FieldInfo, len(s.Fields))
	for _, f := range s.Fields {
		schema[f.Key] = FieldInfo{
			Type:    string(f.Kind),
			Label:   f.Label,
			Default: f.Default,
			Options: slices.Clone(f.Options),
		}
	}
	return Info{
		Type:          s.Kind,
		Name:          s.Name,
		Description:   s.Description,
		Category:      s.Category,
		ConfigSchema:  schema,
		HasInput:      s.HasInput,
		HasOutput:     s.HasOutput,
		SupportsCycle: s.SupportsCycle,
	}
}

// FromInfo converts a backend description into a Spec.
//
// config_schema is an unordered object on the wire. Fields of known kinds are
// ordered as in the catalog, with any extra keys appended in sorted order.
// Display attributes the backend does not send (Color, Icon) are taken from
// the catalog when the kind is known.
func FromInfo(info Info) Spec {
	s := Spec{
		Kind:          info.Type,
		Name:          info.Name,
		Description:   info.Description,
		Category:      info.Category,
		HasInput:      info.HasInput,
		HasOutput:     info.HasOutput,
		SupportsCycle: info.SupportsCycle,
	}
	known, ok := Lookup(info.Type)
	if ok {
		s.Color = known.Color
		s.Icon = known.Icon
	}

	var order []string
	seen := make(map[string]bool, len(info.ConfigSchema))
	for _, f := range known.Fields {
		if _, present := info.ConfigSchema[f.Key]; present {
			order = append(order, f.Key)
			seen[f.Key] = true
		}
	}
	var rest []string
	for key := range info.ConfigSchema {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	for _, key := range order {
		fi := info.ConfigSchema[key]
		s.Fields = append(s.Fields, Field{
			Key:     key,
			Label:   fi.Label,
			Kind:    KindForWidget(fi.Type),
			Default: fi.Default,
			Options: slices.Clone(fi.Options),
		})
	}
	return s
}
