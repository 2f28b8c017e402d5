package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/toolmesh/registry"
)

// InvalidToolPrefix marks a tool the model needs but could not find in the
// offered list.
const InvalidToolPrefix = "INVALID_TOOL:"

// SelectionError reports a selection response that is not a JSON array of
// strings.
type SelectionError struct {
	Raw string
	Err error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("malformed tool selection %q: %v", truncate(e.Raw, 120), e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

const selectionInstruction = `You select the tools needed to handle the user's next message.

Respond with ONLY a JSON array of tool names. No prose, no code fences.

Rules:
- Return [] when the message can be answered from the known facts below without any tool.
- Otherwise return every listed tool that may be needed. When unsure, include the tool.
- When a needed tool is not listed, add "` + InvalidToolPrefix + `<requested-name>" for it.

Available tools:
%s`

// selectionPrompt renders the system text for the selection call.
func selectionPrompt(reg *registry.Registry, knowledge []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, selectionInstruction, reg.Metadata())

	if len(knowledge) > 0 {
		b.WriteString("\n\nKnown facts:\n")
		for i, k := range knowledge {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(k)
		}
	}

	return b.String()
}

// parseSelection decodes the model's answer. Anything other than a JSON
// array of strings is rejected.
func parseSelection(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "[") {
		return nil, &SelectionError{Raw: raw, Err: errors.New("response is not a JSON array")}
	}

	var entries []*string
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, &SelectionError{Raw: raw, Err: err}
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		if e == nil {
			return nil, &SelectionError{Raw: raw, Err: fmt.Errorf("element %d is null", i)}
		}
		if strings.TrimSpace(*e) == "" {
			return nil, &SelectionError{Raw: raw, Err: fmt.Errorf("element %d is an empty name", i)}
		}
		names[i] = *e
	}

	return names, nil
}

// resolve maps names onto the registry. Duplicate names resolve once.
func resolve(reg *registry.Registry, names []string) []Choice {
	choices := make([]Choice, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if requested, ok := strings.CutPrefix(name, InvalidToolPrefix); ok {
			choices = append(choices, Unresolved{Raw: raw, Requested: strings.TrimSpace(requested)})
			continue
		}

		t, ok := reg.Lookup(name)
		if !ok {
			choices = append(choices, Unresolved{Raw: raw, Requested: name})
			continue
		}

		choices = append(choices, Resolved{Tool: t})
	}

	return choices
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
