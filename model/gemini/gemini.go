// Package gemini provides a model.Model backed by the Google Gen AI SDK
// (Gemini API backend) with function calling.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "google.golang.org/genai"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/model"
)

const defaultModel = "gemini-2.5-flash-lite"

// Options configure the Gemini adapter.
type Options struct {
	Model       string
	Temperature float32
	APIKey      string
}

// generator is the subset of *genai.Models used by the adapter.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Model wraps the Gemini generate content API behind model.Model.
type Model struct {
	models generator
	opts   Options
}

var _ model.Model = (*Model)(nil)

// NewModel creates a Gemini model. The API key defaults to GOOGLE_API_KEY.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{Model: defaultModel, Temperature: 0.2, APIKey: os.Getenv("GOOGLE_API_KEY")}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		return nil, errors.New("gemini: missing API key; set GOOGLE_API_KEY or Options.APIKey")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Model{models: client.Models, opts: opts}, nil
}

// Generate performs one generate content call and emits the final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		system, contents := toContents(req.Contents)

		cfg := &genai.GenerateContentConfig{
			SystemInstruction: system,
			Temperature:       genai.Ptr(m.opts.Temperature),
		}

		if len(req.Tools) > 0 {
			decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
			for _, def := range req.Tools {
				decls = append(decls, &genai.FunctionDeclaration{
					Name:                 def.Function.Name,
					Description:          def.Function.Description,
					ParametersJsonSchema: def.Function.Parameters,
				})
			}
			cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		}

		res, err := m.models.GenerateContent(ctx, m.opts.Model, contents, cfg)
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		resp, err := fromResponse(res)
		if err != nil {
			errCh <- err
			return
		}

		out <- resp
	}()

	return out, errCh
}

// toContents splits system text into the system instruction and maps the
// remaining turns. Tool results travel as user turns with function responses.
func toContents(contents []core.Content) (*genai.Content, []*genai.Content) {
	var (
		systemText []string
		out        []*genai.Content
	)

	for _, c := range contents {
		switch c.Role {
		case core.RoleSystem:
			if t := c.Text(); t != "" {
				systemText = append(systemText, t)
			}
		case core.RoleAssistant:
			var parts []*genai.Part
			for _, p := range c.Parts {
				switch part := p.(type) {
				case core.TextPart:
					if part.Text != "" {
						parts = append(parts, &genai.Part{Text: part.Text})
					}
				case core.FunctionCallPart:
					parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
						ID:   part.FunctionCall.ID,
						Name: part.FunctionCall.Name,
						Args: decodeArgs(part.FunctionCall.Arguments),
					}})
				}
			}
			if len(parts) > 0 {
				out = append(out, &genai.Content{Role: "model", Parts: parts})
			}
		case core.RoleTool:
			var parts []*genai.Part
			for _, p := range c.Parts {
				fr, ok := p.(core.FunctionResponsePart)
				if !ok {
					continue
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       fr.FunctionResponse.ID,
					Name:     fr.FunctionResponse.Name,
					Response: responseMap(fr.FunctionResponse.Response),
				}})
			}
			if len(parts) > 0 {
				out = append(out, &genai.Content{Role: "user", Parts: parts})
			}
		default:
			if t := c.Text(); t != "" {
				out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: t}}})
			}
		}
	}

	var system *genai.Content
	if len(systemText) > 0 {
		system = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(systemText, "\n\n")}}}
	}

	return system, out
}

func decodeArgs(s string) map[string]any {
	args := map[string]any{}
	if s == "" {
		return args
	}
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return map[string]any{"raw": s}
	}
	return args
}

// responseMap wraps a tool result in the object shape the API expects,
// using the "error" key for textual failures.
func responseMap(v any) map[string]any {
	if s, ok := v.(string); ok && strings.HasPrefix(s, "Error: ") {
		return map[string]any{"error": strings.TrimPrefix(s, "Error: ")}
	}
	return map[string]any{"output": v}
}

func fromResponse(res *genai.GenerateContentResponse) (model.Response, error) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return model.Response{}, errors.New("gemini: no candidates returned")
	}

	cand := res.Candidates[0]

	var parts []core.Part
	for _, p := range cand.Content.Parts {
		switch {
		case p.FunctionCall != nil:
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil {
				return model.Response{}, fmt.Errorf("gemini: encode function args: %w", err)
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        p.FunctionCall.ID,
				Name:      p.FunctionCall.Name,
				Arguments: string(args),
			}})
		case p.Text != "" && !p.Thought:
			parts = append(parts, core.TextPart{Text: p.Text})
		}
	}

	resp := model.Response{
		ID:           res.ResponseID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: strings.ToLower(string(cand.FinishReason)),
	}

	if u := res.UsageMetadata; u != nil {
		resp.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return resp, nil
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
