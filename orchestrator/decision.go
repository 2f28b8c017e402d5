package orchestrator

import (
	"github.com/hupe1980/toolmesh/tool"
)

// Path records how a Decision was reached.
type Path string

const (
	// PathFull exposes every registered tool without consulting the model.
	PathFull Path = "full"
	// PathSelected exposes the subset the model selected.
	PathSelected Path = "selected"
)

// Choice is one entry of a selection: Resolved or Unresolved.
type Choice interface{ isChoice() }

// Resolved is a selected name that maps to a registered tool.
type Resolved struct {
	Tool tool.Tool
}

func (Resolved) isChoice() {}

// Unresolved is a name the model asked for that the registry does not hold.
// Raw is the name as returned by the model; Requested has the
// INVALID_TOOL: marker removed.
type Unresolved struct {
	Raw       string
	Requested string
}

func (Unresolved) isChoice() {}

// Decision is the per-message outcome of tool selection.
type Decision struct {
	Path    Path
	Choices []Choice
}

// Tools returns the resolved tools in choice order.
func (d Decision) Tools() []tool.Tool {
	out := make([]tool.Tool, 0, len(d.Choices))
	for _, c := range d.Choices {
		if r, ok := c.(Resolved); ok {
			out = append(out, r.Tool)
		}
	}
	return out
}

// Unresolved returns the choices that did not map to a registered tool.
func (d Decision) Unresolved() []Unresolved {
	var out []Unresolved
	for _, c := range d.Choices {
		if u, ok := c.(Unresolved); ok {
			out = append(out, u)
		}
	}
	return out
}

// ToolNames returns the names of the resolved tools.
func (d Decision) ToolNames() []string {
	tools := d.Tools()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}
