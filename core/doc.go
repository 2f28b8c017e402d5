// Package core provides the foundational domain types and interfaces shared by
// the toolmesh packages. It defines:
//
//   - Descriptor (the model-facing declaration of a tool)
//   - AgentContext (the explicit mutable scratch state handed to every tool)
//   - Content / Part (role tagged conversation messages)
//   - Checkpoint / CheckpointStore (per thread conversation state)
//   - Error (the failure taxonomy separating fatal from recoverable errors)
//
// Implementation concerns (tool wrapping, registry assembly, orchestration,
// persistence backends) live in sibling packages so that custom backends only
// need to satisfy the small interfaces declared here.
package core
