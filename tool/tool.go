// Package tool implements the capability wrapper: it turns a descriptor plus
// a plain Go function into an executable tool bound to an agent context, with
// schema validated arguments and a uniform textual error convention.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/toolmesh/core"
)

// ErrorPrefix starts every textual failure result returned by Call.
const ErrorPrefix = "Error: "

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
	CodeNotFound   = "NOT_FOUND"
	CodeDenied     = "APPROVAL_REQUIRED"
)

// Tool is an executable capability bound to one agent context.
//
// Call never returns a Go error: failures of any kind are converted into a
// string result starting with ErrorPrefix so the model can observe them and
// the conversation continues.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Descriptor returns the model-facing declaration.
	Descriptor() core.Descriptor

	// Call executes the tool with decoded JSON arguments.
	Call(ctx context.Context, args map[string]any) any
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// ErrorResult renders err in the textual result convention.
func ErrorResult(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return ErrorPrefix + te.Message
	}
	return ErrorPrefix + err.Error()
}

// IsErrorResult reports whether a Call result is a textual failure.
func IsErrorResult(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, ErrorPrefix)
}
