package memory

import (
	"encoding/json"
	"slices"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is the display view of one thread message.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text,omitempty"`
}

// fromRemote converts a newest-first listing into oldest-first chat messages.
func fromRemote(msgs []remote.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := RoleUser
		if m.Role == remote.RoleAssistant {
			role = RoleAssistant
		}
		out = append(out, ChatMessage{Role: role, Text: m.Text})
	}
	slices.Reverse(out)
	return out
}

// EncodeTranscript renders history as indented JSON for a user-requested export.
func EncodeTranscript(msgs []ChatMessage) ([]byte, error) {
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	return json.MarshalIndent(msgs, "", " ")
}
