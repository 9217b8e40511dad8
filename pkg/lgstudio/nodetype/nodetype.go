// Package nodetype is the fixed catalog of workflow node kinds.
//
// Each kind has display metadata and an ordered list of configuration fields.
// The catalog is read-only: adding a kind means extending this file.
package nodetype

import "slices"

// FieldKind is how a configuration field is edited.
type FieldKind string

// Field kinds.
const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldNumber   FieldKind = "number"
	FieldSelect   FieldKind = "select"
)

// Field is one entry of a kind's configuration schema.
// Default is nil when the field has no default.
type Field struct {
	Key     string
	Label   string
	Kind    FieldKind
	Default any
	Options []string
}

// Spec describes one node kind.
type Spec struct {
	Kind          string
	Name          string
	Description   string
	Category      string
	Color         string
	Icon          string
	HasInput      bool
	HasOutput     bool
	SupportsCycle bool
	Fields        []Field
}

// Node kinds.
const (
	Start      = "start"
	End        = "end"
	LLM        = "llm"
	Agent      = "agent"
	Supervisor = "supervisor"
	Tool       = "tool"
	Code       = "code"
	Condition  = "condition"
	Human      = "human"
	Subgraph   = "subgraph"
	MapReduce  = "map_reduce"
	Loop       = "loop"
	Reflection = "reflection"
)

var (
	modelField = Field{Key: "model_id", Label: "Model", Kind: FieldText}
	promptArea = func(key, label string) Field {
		return Field{Key: key, Label: label, Kind: FieldTextarea}
	}
)

// catalog is kept in palette order.
var catalog = []Spec{
	{
		Kind: Start, Name: "Start", Description: "Workflow entry point",
		Category: "flow", Color: "#22c55e", Icon: "play",
		HasInput: false, HasOutput: true,
	},
	{
		Kind: End, Name: "End", Description: "Workflow terminal",
		Category: "flow", Color: "#ef4444", Icon: "square",
		HasInput: true, HasOutput: false,
		Fields: []Field{
			{Key: "output_variable", Label: "Output Variable", Kind: FieldText},
		},
	},
	{
		Kind: LLM, Name: "LLM", Description: "Single LLM call with prompt templating",
		Category: "data", Color: "#3b82f6", Icon: "sparkles",
		HasInput: true, HasOutput: true,
		Fields: []Field{
			modelField,
			promptArea("system_prompt", "System Prompt"),
			promptArea("user_prompt", "User Prompt"),
			{Key: "temperature", Label: "Temperature", Kind: FieldNumber},
			{Key: "output_key", Label: "Output Key", Kind: FieldText, Default: "output"},
		},
	},
	{
		Kind: Agent, Name: "Agent", Description: "ReAct/FC agent with tools and knowledge",
		Category: "agent", Color: "#8b5cf6", Icon: "bot",
		HasInput: true, HasOutput: true, SupportsCycle: true,
		Fields: []Field{
			modelField,
			promptArea("system_prompt", "System Prompt"),
			{Key: "tool_ids", Label: "Tools", Kind: FieldText},
			{Key: "max_iterations", Label: "Max Iterations", Kind: FieldNumber, Default: 10.0},
		},
	},
	{
		Kind: Supervisor, Name: "Supervisor", Description: "Multi-agent orchestrator",
		Category: "agent", Color: "#a855f7", Icon: "network",
		HasInput: true, HasOutput: true, SupportsCycle: true,
		Fields: []Field{
			{Key: "model_id", Label: "Supervisor Model", Kind: FieldText},
			{Key: "agent_nodes", Label: "Managed Agents", Kind: FieldText},
			promptArea("system_prompt", "Routing Prompt"),
			{Key: "max_rounds", Label: "Max Rounds", Kind: FieldNumber, Default: 10.0},
		},
	},
	{
		Kind: Tool, Name: "Tool", Description: "Execute a single tool",
		Category: "data", Color: "#f59e0b", Icon: "wrench",
		HasInput: true, HasOutput: true,
		Fields: []Field{
			{Key: "tool_id", Label: "Tool", Kind: FieldText},
			promptArea("tool_input", "Tool Input"),
		},
	},
	{
		Kind: Code, Name: "Code", Description: "Execute Python code",
		Category: "data", Color: "#64748b", Icon: "code",
		HasInput: true, HasOutput: true,
		Fields: []Field{
			promptArea("code", "Python Code"),
			promptArea("code_input", "Input Variables"),
			promptArea("code_output", "Output Variables"),
		},
	},
	{
		Kind: Condition, Name: "Condition", Description: "Conditional branching with cycle support",
		Category: "flow", Color: "#eab308", Icon: "git-branch",
		HasInput: true, HasOutput: true, SupportsCycle: true,
		Fields: []Field{
			promptArea("cases", "Conditions"),
			{Key: "default_target", Label: "Default Branch", Kind: FieldText},
		},
	},
	{
		Kind: Human, Name: "Human Review", Description: "Pause for human approval/input",
		Category: "interaction", Color: "#ec4899", Icon: "user",
		HasInput: true, HasOutput: true,
		Fields: []Field{
			{
				Key: "interaction_type", Label: "Type", Kind: FieldSelect,
				Default: "approve", Options: []string{"approve", "edit", "input"},
			},
			promptArea("prompt", "Prompt Message"),
		},
	},
	{
		Kind: Subgraph, Name: "SubGraph", Description: "Embed another workflow",
		Category: "composition", Color: "#14b8a6", Icon: "layers",
		HasInput: true, HasOutput: true,
		Fields: []Field{
			{Key: "sub_workflow_id", Label: "Sub-Workflow", Kind: FieldText},
			promptArea("input_mapping", "Input Mapping"),
			promptArea("output_mapping", "Output Mapping"),
		},
	},
	{
		Kind: MapReduce, Name: "Map-Reduce", Description: "Parallel execution with aggregation",
		Category: "composition", Color: "#06b6d4", Icon: "split",
		HasInput: true, HasOutput: true,
		Fields: []Field{
			modelField,
			{Key: "input_variable", Label: "Input List", Kind: FieldText},
			promptArea("map_prompt", "Map Prompt"),
			promptArea("reduce_prompt", "Reduce Prompt"),
			{Key: "max_concurrency", Label: "Max Concurrency", Kind: FieldNumber, Default: 5.0},
		},
	},
	{
		Kind: Loop, Name: "Loop", Description: "Iterative execution with exit condition",
		Category: "flow", Color: "#f97316", Icon: "repeat",
		HasInput: true, HasOutput: true, SupportsCycle: true,
		Fields: []Field{
			{Key: "max_iterations", Label: "Max Iterations", Kind: FieldNumber, Default: 10.0},
			{Key: "exit_condition", Label: "Exit Condition Variable", Kind: FieldText},
			{Key: "exit_value", Label: "Exit Value", Kind: FieldText, Default: "true"},
		},
	},
	{
		Kind: Reflection, Name: "Reflection", Description: "Self-correction via LLM evaluation",
		Category: "agent", Color: "#d946ef", Icon: "refresh",
		HasInput: true, HasOutput: true, SupportsCycle: true,
		Fields: []Field{
			{Key: "model_id", Label: "Evaluator Model", Kind: FieldText},
			promptArea("evaluation_prompt", "Evaluation Prompt"),
			promptArea("quality_threshold", "Quality Criteria"),
			{Key: "max_reflections", Label: "Max Reflections", Kind: FieldNumber, Default: 3.0},
		},
	},
}

var byKind = func() map[string]int {
	m := make(map[string]int, len(catalog))
	for i, s := range catalog {
		m[s.Kind] = i
	}
	return m
}()

// Lookup returns the Spec for a kind.
func Lookup(kind string) (Spec, bool) {
	i, ok := byKind[kind]
	if !ok {
		return Spec{}, false
	}
	return clone(catalog[i]), true
}

// Has reports whether kind is in the catalog.
func Has(kind string) bool {
	_, ok := byKind[kind]
	return ok
}

// Fields returns the ordered configuration fields for kind.
// Unknown kinds have no fields.
func Fields(kind string) []Field {
	s, ok := Lookup(kind)
	if !ok {
		return nil
	}
	return s.Fields
}

// FieldKeys returns the field keys for kind in schema order.
func FieldKeys(kind string) []string {
	fields := Fields(kind)
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}

// Defaults returns the declared defaults for kind. Fields without a default
// are omitted.
func Defaults(kind string) map[string]any {
	out := make(map[string]any)
	for _, f := range Fields(kind) {
		if f.Default != nil {
			out[f.Key] = f.Default
		}
	}
	return out
}

// DisplayName returns the palette name for kind, or kind itself if unknown.
func DisplayName(kind string) string {
	if s, ok := Lookup(kind); ok {
		return s.Name
	}
	return kind
}

// All returns every Spec in palette order.
func All() []Spec {
	out := make([]Spec, len(catalog))
	for i, s := range catalog {
		out[i] = clone(s)
	}
	return out
}

// Kinds returns every kind in palette order.
func Kinds() []string {
	out := make([]string, len(catalog))
	for i, s := range catalog {
		out[i] = s.Kind
	}
	return out
}

func clone(s Spec) Spec {
	s.Fields = slices.Clone(s.Fields)
	for i := range s.Fields {
		s.Fields[i].Options = slices.Clone(s.Fields[i].Options)
	}
	return s
}
