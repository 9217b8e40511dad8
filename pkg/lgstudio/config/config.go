// Package config gives typed access to loosely typed maps: node
// configuration bags, backend payload objects and run inputs.
//
// Accessors never fail. A missing key or a value of the wrong type yields
// the caller's default.
package config

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
)

// Config wraps a map[string]any.
type Config struct {
	data map[string]any
}

// New creates a Config from data. A nil map gives an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
// float64 values convert only when they have no fractional part.
func (c Config) Int(key string, defaultVal int) int {
	switch val := c.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal if missing or not convertible.
func (c Config) Float(key string, defaultVal float64) float64 {
	switch val := c.data[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal if missing or
// if any element is not a string.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	switch val := c.data[key].(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// Map returns the nested object at key as a Config. ok is false when the
// key is missing or not an object.
func (c Config) Map(key string) (Config, bool) {
	m, ok := c.data[key].(map[string]any)
	if !ok {
		return Config{}, false
	}
	return New(m), true
}

// Text renders the value for key as editable text.
//
// Strings are returned as-is, numbers in their shortest form and booleans as
// true/false. Nil or missing values give defaultVal. Anything else is
// rendered as compact JSON.
func (c Config) Text(key, defaultVal string) string {
	v, ok := c.data[key]
	if !ok || v == nil {
		return defaultVal
	}
	return FormatValue(v)
}

// FormatValue renders a single value the way Text does.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Any returns the raw value for key, or defaultVal if missing.
func (c Config) Any(key string, defaultVal any) any {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	return v
}

// Has returns true if the key exists.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Keys returns all keys in sorted order.
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.data))
}

// Raw returns the underlying map. The returned map should not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}
