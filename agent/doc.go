// Package agent contains the executable agent handle bound per message.
//
// An Executor pairs a model with the tool subset chosen for one message and
// the conversation checkpoint store. Invoke runs the usual tool-call loop:
//
//  1. load the thread's checkpoint
//  2. send history plus input to the model together with the tool definitions
//  3. execute any requested function calls and feed the results back
//  4. repeat until the model answers with text or MaxSteps is reached
//  5. persist the extended history and the knowledge snapshot
//
// Tool failures never abort the loop. They are returned to the model as
// "Error: ..." function responses.
//
// Instruction renders the agent's system instruction from a text/template or
// a dynamic provider.
package agent
