// Package model defines the provider-agnostic abstractions for talking to
// language models.
//
// Core goals:
//   - One Generate interface for every vendor, emitting responses on a channel
//   - Normalized tool definitions and function call parts (see core.Content)
//   - Collect for callers that only need the final response
//   - Lightweight canned responses for demos (MockModel)
//
// Providers live in sub-packages (openai, anthropic, gemini) so that the
// registry, orchestrator and agent layers stay decoupled from vendor SDKs.
package model
