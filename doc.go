// Package toolmesh is the entry point for building a tool-using conversational
// agent. Most applications:
//  1. Create an Agent via New(), supplying a model, the full list of opt-in
//     tools with the indices to enable, and any always-on clients
//  2. Call Initialize once to open the checkpoint backend, instantiate the
//     registry and render the system instruction
//  3. Call MessageAgent for every user message, keyed by a thread id
//
// For every message the orchestrator decides which tools to offer. Small
// registries are exposed in full; larger ones are narrowed by a selection call
// to the model. The selected tools are bound to an agent.Executor that runs the
// tool-call loop and persists the conversation under the thread id.
//
// Initialize failures are fatal and leave the Agent unusable. MessageAgent
// failures are reported on the Reply and the Agent keeps serving.
package toolmesh
