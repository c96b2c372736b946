// Package remote describes the hosted agent runtime the assistant talks to.
//
// The runtime owns assistants, threads, messages and runs. Callers observe a
// run's status through ListRuns/RetrieveRun or through a Stream, and only
// move it forward by submitting tool outputs.
//
// Lifecycle:
//
//	queued -> in_progress -> requires_action -> in_progress -> ... -> completed
//	                                  \-> failed | cancelled | expired | incomplete
package remote

import "context"

// RunStatus is the lifecycle state of a run as reported by the runtime.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCancelling     RunStatus = "cancelling"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusCancelled      RunStatus = "cancelled"
	StatusExpired        RunStatus = "expired"
	StatusIncomplete     RunStatus = "incomplete"
)

// Active reports whether a run in this status blocks new messages and runs on its thread.
func (s RunStatus) Active() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusRequiresAction, StatusCancelling:
		return true
	}
	return false
}

// Pending reports whether the runtime is still working without waiting on us.
func (s RunStatus) Pending() bool {
	return s == StatusQueued || s == StatusInProgress
}

// Terminal reports whether no further transitions will happen.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired, StatusIncomplete:
		return true
	}
	return false
}

// Failed reports terminal statuses other than completed.
func (s RunStatus) Failed() bool {
	return s.Terminal() && s != StatusCompleted
}

// Role is the author of a thread message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCallRequest is one pending action inside a requires_action run.
type ToolCallRequest struct {
	CallID    string
	ToolName  string
	Arguments string // raw JSON object text as produced by the model
}

// ToolCallResult answers exactly one ToolCallRequest, keyed by CallID.
type ToolCallResult struct {
	CallID string
	Output string
}

// Run is a snapshot of a run. PendingCalls is only set in requires_action.
type Run struct {
	ID           string
	ThreadID     string
	AssistantID  string
	Status       RunStatus
	PendingCalls []ToolCallRequest
	LastError    string
}

// Assistant identifies an agent definition held by the runtime.
type Assistant struct {
	ID   string
	Name string
}

// AssistantSpec declares an agent definition at creation time.
type AssistantSpec struct {
	Name         string
	Instructions string
	Model        string
	Tools        []ToolSchema
}

// Message is one thread message as listed by the runtime.
type Message struct {
	ID       string
	ThreadID string
	Role     Role
	Text     string
}

// Runtime is the subset of the hosted assistant API the core consumes.
// ListMessages returns newest first, like the hosted API does.
type Runtime interface {
	ListAssistants(ctx context.Context, limit int) ([]Assistant, error)
	CreateAssistant(ctx context.Context, spec AssistantSpec) (Assistant, error)
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, text string) (Message, error)
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
	ListRuns(ctx context.Context, threadID string) ([]Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	StreamRun(ctx context.Context, threadID, assistantID string) (Stream, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, results []ToolCallResult) (Stream, error)
	CancelRun(ctx context.Context, threadID, runID string) (Run, error)
}
