package remotetest

import "github.com/ejseo87/openai-assistants-2025/internal/remote"

func TextCreated() remote.Event { return remote.Event{Kind: remote.EventTextCreated} }

func TextDelta(s string) remote.Event {
	return remote.Event{Kind: remote.EventTextDelta, Text: s}
}

// Status reports runID in status.
func Status(runID string, status remote.RunStatus) remote.Event {
	return remote.Event{Kind: remote.EventRunStatus, Run: remote.Run{ID: runID, Status: status}}
}

// RequiresAction reports runID waiting on calls.
func RequiresAction(runID string, calls ...remote.ToolCallRequest) remote.Event {
	return remote.Event{Kind: remote.EventRequiresAction, Run: remote.Run{
		ID:           runID,
		Status:       remote.StatusRequiresAction,
		PendingCalls: calls,
	}}
}

// Stream builds a stream that ends cleanly after events.
func Stream(events ...remote.Event) remote.Stream {
	return remote.NewSliceStream(nil, events...)
}
