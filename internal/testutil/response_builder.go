package testutil

import (
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/model"
)

// ResponseBuilder provides a fluent helper for constructing model responses.
// Example:
//
//	resp := NewResponseBuilder().Call("c1", "lookup", `{"q":"go"}`).Build()
//
// Chain only the parts you need.
type ResponseBuilder struct {
	parts        []core.Part
	finishReason string
}

// NewResponseBuilder creates an empty assistant response builder.
func NewResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

// Text appends a text part (chainable).
func (b *ResponseBuilder) Text(s string) *ResponseBuilder {
	b.parts = append(b.parts, core.TextPart{Text: s})
	return b
}

// Call appends a function call part (chainable).
func (b *ResponseBuilder) Call(id, name, args string) *ResponseBuilder {
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}})
	b.finishReason = "tool_calls"
	return b
}

// Build finalizes the response.
func (b *ResponseBuilder) Build() model.Response {
	reason := b.finishReason
	if reason == "" {
		reason = "stop"
	}
	return model.Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: b.parts},
		FinishReason: reason,
	}
}

// TextResponse is shorthand for NewResponseBuilder().Text(s).Build().
func TextResponse(s string) model.Response { return NewResponseBuilder().Text(s).Build() }
