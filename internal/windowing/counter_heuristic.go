package windowing

import (
	"unicode/utf8"

	"github.com/ejseo87/openai-assistants-2025/internal/threadstore"
)

// TokenCounter estimates input-token cost for entries or groups.
type TokenCounter interface {
	CountEntry(e threadstore.Entry) int
	CountGroup(g Group, all []threadstore.Entry) int
}

// HeuristicCounter is the default deterministic estimator.
// Rules:
// - text: rune count plus one block overhead when non-empty
// - tool call: runes of name and arguments plus overhead
// - tool result: runes of output plus overhead
type HeuristicCounter struct{}

// Fixed per-block overhead; changing this requires updating the guard test.
const blockOverhead = 4

func (HeuristicCounter) CountEntry(e threadstore.Entry) int {
	total := 0
	if e.Text != "" {
		total += utf8.RuneCountInString(e.Text) + blockOverhead
	}
	for _, c := range e.ToolCalls {
		total += utf8.RuneCountInString(c.ToolName) + utf8.RuneCountInString(c.Arguments) + blockOverhead
	}
	for _, r := range e.Results {
		total += utf8.RuneCountInString(r.Output) + blockOverhead
	}
	if total == 0 {
		// empty entries still cost their framing
		return blockOverhead
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []threadstore.Entry) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountEntry(all[i])
	}
	return total
}
