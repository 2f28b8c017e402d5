package agent

import (
	"github.com/hupe1980/toolmesh/internal/util"
)

// DefaultInstruction renders the agent name, the tool metadata and any
// remembered facts.
const DefaultInstruction = `You are {{.Name}}, a helpful assistant.
{{if .Tools}}
You can use these tools:
{{.Tools}}
{{end}}{{if .Knowledge}}
Known facts:
{{bullets .Knowledge}}
{{end}}`

// InstructionData is the template data available to instructions.
type InstructionData struct {
	Name      string
	Tools     string // registry metadata block, one "- name: description" per line
	ToolNames []string
	Knowledge []string
	Params    map[string]any
}

// Provider supplies dynamic instruction text.
type Provider interface {
	Instruction(data InstructionData) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(data InstructionData) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(data InstructionData) (string, error) { return f(data) }

// Instruction represents either a text/template string or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(data InstructionData) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, rendering the template or invoking
// the provider.
func (i Instruction) Resolve(data InstructionData) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(data)
	}
	return util.RenderTemplate(i.text, data)
}
