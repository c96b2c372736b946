package windowing_test

import (
	"testing"

	"github.com/ejseo87/openai-assistants-2025/internal/threadstore"
	"github.com/ejseo87/openai-assistants-2025/internal/windowing"
)

func TestPrepareSendWindow_BudgetRespected_OrderPreserved(t *testing.T) {
	entries := []threadstore.Entry{
		User("old"),   // G0: 7
		Asst("ans"),   // G1: 7
		User("new"),   // G2: 7
		Asst("", "a"), // G3: 7 + 5 = 12
		Results("a"),
	}
	budget := 19 // G3 + G2

	window, stats := windowing.PrepareSendWindow(entries, budget, windowing.HeuristicCounter{})

	if stats.Total != 19 || stats.IncludedGroups != 2 || stats.SkippedGroups != 2 || stats.OverBudgetNewest {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(window) != 3 || window[0].Text != "new" || window[2].Kind != threadstore.KindToolResults {
		t.Fatalf("unexpected window %+v", window)
	}
}

func TestPrepareSendWindow_StartsAtUser(t *testing.T) {
	entries := []threadstore.Entry{
		User("old"), // 7
		Asst("ans"), // 7
		User("new"), // 7
		Asst("ok"),  // 6
	}
	// fits Asst("ans") too, but the window must not open with it
	window, stats := windowing.PrepareSendWindow(entries, 20, windowing.HeuristicCounter{})

	if len(window) != 2 || window[0].Text != "new" {
		t.Fatalf("unexpected window %+v", window)
	}
	if stats.Total != 13 || stats.IncludedGroups != 2 || stats.SkippedGroups != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPrepareSendWindow_NewestGroupOverBudget(t *testing.T) {
	entries := []threadstore.Entry{User("old"), Asst("", "a"), Results("a")}

	window, stats := windowing.PrepareSendWindow(entries, 10, windowing.HeuristicCounter{})

	if len(window) != 0 || !stats.OverBudgetNewest || stats.IncludedGroups != 0 || stats.SkippedGroups != 2 {
		t.Fatalf("unexpected result: window=%v stats=%+v", window, stats)
	}
}

func TestPrepareSendWindow_NoCapacityBudget(t *testing.T) {
	window, stats := windowing.PrepareSendWindow([]threadstore.Entry{User("x")}, 0, windowing.HeuristicCounter{})
	if len(window) != 0 || !stats.OverBudgetNewest || stats.SkippedGroups != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_Empty(t *testing.T) {
	window, stats := windowing.PrepareSendWindow(nil, 123, windowing.HeuristicCounter{})
	if window != nil || stats.Budget != 123 || stats.Total != 0 || stats.OverBudgetNewest {
		t.Fatalf("unexpected result: window=%v stats=%+v", window, stats)
	}
}

func TestPrepareSendWindow_AllFit(t *testing.T) {
	entries := []threadstore.Entry{User("oldest"), Asst("mid"), User("new")}
	window, stats := windowing.PrepareSendWindow(entries, 1000, windowing.HeuristicCounter{})
	if len(window) != 3 || stats.Total != 10+7+7 || stats.SkippedGroups != 0 {
		t.Fatalf("unexpected result: window=%d stats=%+v", len(window), stats)
	}
}
