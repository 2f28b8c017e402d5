package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/tool"
)

type rememberFactArgs struct {
	Fact string `json:"fact" description:"A short, self-contained fact worth remembering for later turns."`
}

// RememberFact appends a knowledge fragment to the agent context. Knowledge
// is offered to the model during tool selection and saved with the
// conversation checkpoint.
func RememberFact() tool.IndexedTool {
	return tool.IndexedTool{
		Name: RememberFactName,
		Factory: tool.CreateToolFromStruct(
			RememberFactName,
			"Stores a fact about the user or the task so it is available in later turns.",
			rememberFactArgs{},
			func(_ context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error) {
				var in rememberFactArgs
				if err := decode(args, &in); err != nil {
					return nil, err
				}

				fact := strings.TrimSpace(in.Fact)
				if fact == "" {
					return nil, fmt.Errorf("fact must not be empty")
				}

				agentCtx.AddKnowledge(fact)

				return map[string]any{
					"stored":    fact,
					"knowledge": len(agentCtx.Knowledge()),
				}, nil
			},
		),
	}
}

type setParamArgs struct {
	Key   string `json:"key" description:"Parameter name."`
	Value string `json:"value" description:"Parameter value."`
}

// SetParam writes a runtime parameter on the agent context.
func SetParam() tool.IndexedTool {
	return tool.IndexedTool{
		Name: SetParamName,
		Factory: tool.CreateToolFromStruct(
			SetParamName,
			"Sets a named runtime parameter for this agent.",
			setParamArgs{},
			func(_ context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error) {
				var in setParamArgs
				if err := decode(args, &in); err != nil {
					return nil, err
				}
				if in.Key == "" {
					return nil, fmt.Errorf("key parameter is required")
				}

				agentCtx.SetParam(in.Key, in.Value)

				return map[string]any{
					"key":     in.Key,
					"value":   in.Value,
					"success": true,
				}, nil
			},
		),
	}
}

type getParamArgs struct {
	Key string `json:"key" description:"Parameter name."`
}

// GetParam reads a runtime parameter from the agent context.
func GetParam() tool.IndexedTool {
	return tool.IndexedTool{
		Name: GetParamName,
		Factory: tool.CreateToolFromStruct(
			GetParamName,
			"Reads a named runtime parameter of this agent.",
			getParamArgs{},
			func(_ context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error) {
				var in getParamArgs
				if err := decode(args, &in); err != nil {
					return nil, err
				}

				value, exists := agentCtx.Param(in.Key)

				return map[string]any{
					"key":    in.Key,
					"exists": exists,
					"value":  value,
				}, nil
			},
		),
	}
}
