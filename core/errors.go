package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by the layer that produced them.
type ErrorKind string

const (
	// KindConfiguration covers missing collaborators and unreachable backends.
	KindConfiguration ErrorKind = "configuration"
	// KindRegistry covers tool or client factory failures.
	KindRegistry ErrorKind = "registry"
	// KindOrchestration covers selection protocol violations and handle construction.
	KindOrchestration ErrorKind = "orchestration"
	// KindCapability covers tool execution failures.
	KindCapability ErrorKind = "capability"
	// KindCheckpoint covers checkpoint read/write failures at message time.
	KindCheckpoint ErrorKind = "checkpoint"
	// KindModel covers model invocation failures.
	KindModel ErrorKind = "model"
)

// Error is the typed error surfaced by the facade.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and operation name.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the failure leaves an agent instance unusable.
func (e *Error) Fatal() bool {
	return e.Kind == KindConfiguration || e.Kind == KindRegistry
}

// IsKind reports whether err wraps a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
