package windowing

import (
	"log/slog"
	"os"

	"github.com/ejseo87/openai-assistants-2025/internal/threadstore"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of entries [Start, End) in the original slice.
type Group struct {
	Kind  GroupKind
	Start int // inclusive
	End   int // exclusive
}

// GroupBlocks groups transcript entries into atomic units that keep tool calls
// next to their results.
// Invariants:
// - A pair is exactly two adjacent entries: assistant(with tool calls) then tool_results.
// - The results must answer every call id of the assistant entry and nothing else.
// - Anything else is a singleton.
func GroupBlocks(entries []threadstore.Entry) []Group {
	groups := make([]Group, 0, len(entries))
	for i := 0; i < len(entries); {
		e := entries[i]
		if e.Kind == threadstore.KindAssistant && len(e.ToolCalls) > 0 {
			if i+1 < len(entries) && entries[i+1].Kind == threadstore.KindToolResults {
				callIDs := collectCallIDs(e)
				resultIDs := collectResultIDs(entries[i+1])
				if coversAll(resultIDs, callIDs) && noExtraResults(resultIDs, callIDs) {
					groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
					i += 2
					continue
				}
				reason := "missing_results"
				if coversAll(resultIDs, callIDs) {
					reason = "extra_results"
				}
				vlog("exclude pair", "reason", reason, "idx", i)
			} else {
				vlog("exclude pair", "reason", "not_followed_by_results", "idx", i)
			}
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

func collectCallIDs(e threadstore.Entry) map[string]struct{} {
	ids := make(map[string]struct{}, len(e.ToolCalls))
	for _, c := range e.ToolCalls {
		if c.CallID != "" {
			ids[c.CallID] = struct{}{}
		}
	}
	return ids
}

func collectResultIDs(e threadstore.Entry) map[string]struct{} {
	ids := make(map[string]struct{}, len(e.Results))
	for _, r := range e.Results {
		if r.CallID != "" {
			ids[r.CallID] = struct{}{}
		}
	}
	return ids
}

// coversAll checks that every id in required is present in have.
func coversAll(have, required map[string]struct{}) bool {
	for id := range required {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// noExtraResults checks that have holds no id outside allowed.
func noExtraResults(have, allowed map[string]struct{}) bool {
	for id := range have {
		if _, ok := allowed[id]; !ok {
			return false
		}
	}
	return true
}

// verbose window decisions when RA_VERBOSE_WINDOW_LOGS=1
var verbose = os.Getenv("RA_VERBOSE_WINDOW_LOGS") == "1"

func vlog(msg string, args ...any) {
	if verbose {
		slog.Default().Info("windowing: "+msg, args...)
	}
}
