package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "mem://schema.json"

// compileSchema compiles a JSON schema map. A nil schema yields a nil
// validator which accepts any arguments.
func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	doc, err := normalize(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}

	return c.Compile(schemaURL)
}

// validateArgs checks args against a compiled schema.
func validateArgs(sch *jsonschema.Schema, args map[string]any) error {
	if sch == nil {
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}

	v, err := normalize(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%s", flatten(err.Error()))
	}

	return nil
}

// normalize round-trips v through JSON so Go typed values ([]string, int)
// reach the validator in their decoded JSON shape.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func flatten(msg string) string {
	lines := strings.Split(msg, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " ")
}
