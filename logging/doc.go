// Package logging provides a minimal logging interface and adapters for toolmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the registry, orchestrator and agent facade use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.New(logging.Config{Level: logging.LogLevelInfo, Format: "json"})
//	agent := toolmesh.New(func(o *toolmesh.Options) { o.Logger = logger })
//
// Event names follow a dotted convention (registry.collision, tool.call.error)
// with key/value attributes.
package logging
