package windowing

import "github.com/ejseo87/openai-assistants-2025/internal/threadstore"

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated tokens for included groups only.
// - Budget: the input token budget used.
// - IncludedGroups: number of groups included.
// - SkippedGroups: total groups minus IncludedGroups.
// - OverBudgetNewest: true when the newest single group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns a suffix of entries (oldest→newest) that fits
// within budget using c, without splitting groups.
//
// Rules:
// - Include whole groups scanning newest→oldest while total ≤ budget.
// - The window starts at a user entry; older leading groups are dropped.
// - If the newest group alone exceeds budget, return an empty window and set OverBudgetNewest.
// - If budget ≤ 0, return an empty window (OverBudgetNewest set when any groups exist).
func PrepareSendWindow(entries []threadstore.Entry, budget int, c TokenCounter) ([]threadstore.Entry, Stats) {
	if len(entries) == 0 {
		return nil, Stats{Budget: budget}
	}

	groups := GroupBlocks(entries)

	if budget <= 0 {
		return nil, Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
	}

	costs := make([]int, len(groups))
	for i, g := range groups {
		costs[i] = c.CountGroup(g, entries)
	}

	total := 0
	startIdx := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		if startIdx == len(groups) && costs[gi] > budget {
			vlog("over budget newest group", "budget", budget, "cost", costs[gi])
			return nil, Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
		}
		if total+costs[gi] > budget {
			break
		}
		total += costs[gi]
		startIdx = gi
	}

	// A conversation sent to a model must open with the user.
	for startIdx < len(groups) && entries[groups[startIdx].Start].Kind != threadstore.KindUser {
		vlog("drop leading group", "reason", "not_user", "idx", groups[startIdx].Start)
		total -= costs[startIdx]
		startIdx++
	}

	included := len(groups) - startIdx
	if included == 0 {
		return nil, Stats{Budget: budget, SkippedGroups: len(groups)}
	}
	return entries[groups[startIdx].Start:], Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
	}
}
