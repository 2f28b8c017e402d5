// Package builtin provides a small set of general purpose tools that a host
// can opt into by index.
package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/toolmesh/tool"
)

// Tool names.
const (
	CurrentTimeName  = "current_time"
	RememberFactName = "remember_fact"
	SetParamName     = "set_param"
	GetParamName     = "get_param"
	HTTPGetName      = "http_get"
)

// All returns the built-in tools in a stable order. Positions in this slice
// are the indices accepted by registry.Load and the tools.enabled setting.
func All() []tool.IndexedTool {
	return []tool.IndexedTool{
		CurrentTime(),
		RememberFact(),
		SetParam(),
		GetParam(),
		HTTPGet(),
	}
}

// Index returns the position of the named tool in All, or -1.
func Index(name string) int {
	for i, t := range All() {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// decode maps validated tool arguments onto a typed struct.
func decode(args map[string]any, v any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
