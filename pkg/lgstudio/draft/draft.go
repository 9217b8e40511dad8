package draft

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/bridge"
)

// Version is the current draft format version.
// Increment when making breaking changes to Draft.
const Version = 1

// Draft is one autosaved copy of a workflow.
type Draft struct {
	Version   int         `json:"version"`
	Key       string      `json:"key"`
	Revision  int         `json:"revision"`
	Timestamp time.Time   `json:"timestamp"`
	File      bridge.File `json:"file"`
}

// Marshal serializes a draft to JSON.
func (d *Draft) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// Unmarshal deserializes a draft and checks its version.
func Unmarshal(data []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.Version > Version {
		return nil, fmt.Errorf("draft version %d is newer than supported version %d", d.Version, Version)
	}
	return &d, nil
}
