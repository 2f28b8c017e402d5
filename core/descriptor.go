package core

import (
	"fmt"
	"sort"
	"strings"
)

// Descriptor is the model-facing declaration of a single tool.
type Descriptor struct {
	// Name must be unique within one agent's registry.
	Name string `json:"name"`
	// Description is shown to the model both for tool calling and selection.
	Description string `json:"description"`
	// Schema is a JSON Schema object describing the accepted arguments. Nil
	// means the tool takes no arguments.
	Schema map[string]any `json:"schema,omitempty"`
	// RequiresApproval marks tools that must not be executed without an
	// external confirmation.
	RequiresApproval bool `json:"requires_approval,omitempty"`
}

// Validate reports whether the descriptor carries the minimum fields required
// for registration.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("descriptor name is required")
	}

	if strings.ContainsAny(d.Name, " \t\n") {
		return fmt.Errorf("descriptor name %q must not contain whitespace", d.Name)
	}

	return nil
}

// Parameters returns the argument schema, substituting an empty object schema
// for zero-argument tools so providers always receive a valid declaration.
func (d Descriptor) Parameters() map[string]any {
	if d.Schema != nil {
		return d.Schema
	}

	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// DescriptorMap maps tool names to descriptors.
type DescriptorMap map[string]Descriptor

// Names returns the sorted keys of the map.
func (m DescriptorMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
