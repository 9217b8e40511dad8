package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/api"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// File is the on-disk form of a workflow: its metadata plus the same
// document the backend stores.
type File struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Data        api.Document `json:"data" yaml:"data"`
}

// ToFile converts a workflow to its file form.
func ToFile(w workflow.Workflow) File {
	return File{ID: w.ID, Name: w.Name, Description: w.Description, Data: Encode(w)}
}

// Workflow converts the file back into a workflow.
func (f File) Workflow() workflow.Workflow {
	w := workflow.New()
	w.ID = f.ID
	if f.Name != "" {
		w.Name = f.Name
	}
	w.Description = f.Description
	w.Nodes, w.Edges = Decode(f.Data)
	return w
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// WriteFile writes w to path. Files ending in .json are written as JSON,
// anything else as YAML.
func WriteFile(path string, w workflow.Workflow) error {
	f := ToFile(w)

	var data []byte
	var err error
	if isJSON(path) {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	} else {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		err = enc.Encode(f)
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a workflow written by WriteFile. JSON files are also
// accepted under a YAML extension since YAML is a superset of JSON.
func ReadFile(path string) (workflow.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workflow.Workflow{}, fmt.Errorf("read %s: %w", path, err)
	}

	var f File
	if isJSON(path) {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return workflow.Workflow{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Workflow(), nil
}

// Import reads a workflow file into the store. With asNew set the file's ID
// is dropped so the next Save creates a new workflow. The imported graph is
// left dirty since it differs from what the backend holds.
func (b *Bridge) Import(path string, asNew bool) error {
	w, err := ReadFile(path)
	if err != nil {
		return err
	}
	if asNew {
		w.ID = ""
	}
	b.store.Replace(w)
	b.store.SetNodes(w.Nodes)
	return nil
}

// Export writes the store's current graph to path.
func (b *Bridge) Export(path string) error {
	return WriteFile(path, b.store.Workflow())
}
