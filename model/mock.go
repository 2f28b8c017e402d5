package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/toolmesh/core"
)

// MockModel is a lightweight in-memory Model useful for demos and offline runs.
// It answers with canned completions keyed by the last user text and never
// requests tools.
type MockModel struct {
	mu        sync.RWMutex
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: false,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		input := lastUserText(req.Contents)
		if input == "" {
			errCh <- fmt.Errorf("no user content provided")
			return
		}

		m.mu.RLock()
		full, ok := m.responses[input]
		m.mu.RUnlock()

		if !ok {
			full = m.fallback(req, input)
		}

		respCh <- Response{
			Content:      core.NewTextContent(core.RoleAssistant, full),
			FinishReason: "stop",
		}
	}()

	return respCh, errCh
}

// fallback answers selection prompts (requests without tools whose system
// text asks for a JSON array) with an empty selection, and echoes otherwise.
func (m *MockModel) fallback(req Request, input string) string {
	if len(req.Tools) == 0 {
		for _, c := range req.Contents {
			if c.Role == core.RoleSystem && strings.Contains(c.Text(), "JSON array") {
				return "[]"
			}
		}
	}
	return fmt.Sprintf("Mock response to: %s", input)
}

func lastUserText(contents []core.Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role == core.RoleUser {
			return contents[i].Text()
		}
	}
	return ""
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
