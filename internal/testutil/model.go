package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/toolmesh/model"
)

// ScriptedModel replays queued responses in order and records every request.
// A call beyond the script yields an error, which makes "the model must not be
// called" assertions explicit.
type ScriptedModel struct {
	mu       sync.Mutex
	steps    []scriptStep
	requests []model.Request
}

type scriptStep struct {
	resp model.Response
	err  error
}

var _ model.Model = (*ScriptedModel)(nil)

// NewScriptedModel queues the given responses.
func NewScriptedModel(responses ...model.Response) *ScriptedModel {
	m := &ScriptedModel{}
	for _, r := range responses {
		m.steps = append(m.steps, scriptStep{resp: r})
	}
	return m
}

// Then queues another response (chainable).
func (m *ScriptedModel) Then(resp model.Response) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, scriptStep{resp: resp})
	return m
}

// ThenText queues a plain text response (chainable).
func (m *ScriptedModel) ThenText(s string) *ScriptedModel { return m.Then(TextResponse(s)) }

// ThenError queues a failure (chainable).
func (m *ScriptedModel) ThenError(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, scriptStep{err: err})
	return m
}

// Generate implements model.Model.
func (m *ScriptedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var step scriptStep
	var ok bool
	if len(m.steps) > 0 {
		step, m.steps, ok = m.steps[0], m.steps[1:], true
	}
	n := len(m.requests)
	m.mu.Unlock()

	switch {
	case ctx.Err() != nil:
		errCh <- ctx.Err()
	case !ok:
		errCh <- fmt.Errorf("unexpected model call #%d", n)
	case step.err != nil:
		errCh <- step.err
	default:
		respCh <- step.resp
	}

	close(respCh)
	close(errCh)

	return respCh, errCh
}

// Info implements model.Model.
func (m *ScriptedModel) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "test", SupportsTools: true}
}

// Requests returns the recorded requests.
func (m *ScriptedModel) Requests() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of Generate invocations.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Remaining returns the number of unconsumed scripted steps.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}
