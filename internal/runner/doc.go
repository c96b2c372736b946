// Package runner drives one conversation turn against a hosted runtime and
// dispatches the tool calls the runtime asks for.
//
// Invariant:
//   - every ToolCallRequest of a requires_action run is answered by exactly one
//     ToolCallResult with the same CallID, and all of them are submitted together.
//
// Flow:
//
//	StreamRun -> text deltas -> requires_action -> ExecuteAll -> SubmitToolOutputs -> ... -> terminal
package runner
