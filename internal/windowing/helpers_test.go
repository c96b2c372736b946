package windowing_test

import (
	"github.com/ejseo87/openai-assistants-2025/internal/remote"
	"github.com/ejseo87/openai-assistants-2025/internal/threadstore"
	"github.com/ejseo87/openai-assistants-2025/internal/windowing"
)

// User entry constructor
func User(text string) threadstore.Entry {
	return threadstore.Entry{Kind: threadstore.KindUser, Text: text}
}

// Assistant entry with optional tool calls; each call is named "t" with "{}" arguments.
func Asst(text string, callIDs ...string) threadstore.Entry {
	e := threadstore.Entry{Kind: threadstore.KindAssistant, Text: text}
	for _, id := range callIDs {
		e.ToolCalls = append(e.ToolCalls, remote.ToolCallRequest{CallID: id, ToolName: "t", Arguments: "{}"})
	}
	return e
}

// Results entry answering ids with output "r".
func Results(ids ...string) threadstore.Entry {
	e := threadstore.Entry{Kind: threadstore.KindToolResults}
	for _, id := range ids {
		e.Results = append(e.Results, remote.ToolCallResult{CallID: id, Output: "r"})
	}
	return e
}

func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
