package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInputsNotObject is returned when a run-inputs document is not a
// key/value object.
var ErrInputsNotObject = errors.New("run inputs must be an object")

// Input file formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// LoadInputs reads run inputs from a .yaml, .yml or .json file, or from r
// when path is "-" (either format is accepted there, JSON being valid YAML).
func LoadInputs(path string, r io.Reader) (Config, error) {
	if path == "-" {
		data, err := io.ReadAll(r)
		if err != nil {
			return Config{}, fmt.Errorf("read inputs: %w", err)
		}
		return ParseInputs(data, FormatYAML)
	}

	var format string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return Config{}, fmt.Errorf("inputs file %s: unsupported extension %q", path, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read inputs: %w", err)
	}
	cfg, err := ParseInputs(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("inputs file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseInputs decodes a run-inputs document. Empty documents and null give
// no inputs. Numbers come back as float64 in both formats so a YAML file and
// its JSON twin produce the same /run payload.
func ParseInputs(data []byte, format string) (Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(nil), nil
	}

	var v any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
		v = normalizeYAML(v)
	case FormatJSON:
		if err := json.Unmarshal(data, &v); err != nil {
			return Config{}, fmt.Errorf("parse json: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unknown inputs format %q", format)
	}

	switch m := v.(type) {
	case nil:
		return New(nil), nil
	case map[string]any:
		return New(m), nil
	default:
		return Config{}, fmt.Errorf("%w, got %T", ErrInputsNotObject, v)
	}
}

// normalizeYAML maps yaml.v3 decoding onto the JSON data model: integers
// become float64 and mappings with non-string keys get string keys.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	}
	return v
}
