package threadstore_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
	"github.com/ejseo87/openai-assistants-2025/internal/threadstore"
)

func TestListAssistants_NewestFirstWithLimit(t *testing.T) {
	s := threadstore.New()
	a := s.CreateAssistant(remote.AssistantSpec{Name: "a"})
	b := s.CreateAssistant(remote.AssistantSpec{Name: "b"})
	c := s.CreateAssistant(remote.AssistantSpec{Name: "c"})

	got := s.ListAssistants(2)
	if len(got) != 2 || got[0] != c || got[1] != b {
		t.Fatalf("unexpected list %+v", got)
	}
	if all := s.ListAssistants(0); len(all) != 3 || all[2] != a {
		t.Fatalf("unexpected full list %+v", all)
	}
	if !strings.HasPrefix(a.ID, "asst_") {
		t.Fatalf("unexpected id %q", a.ID)
	}
	if _, err := s.Assistant("nope"); !errors.Is(err, threadstore.ErrAssistantNotFound) {
		t.Fatalf("expected ErrAssistantNotFound, got %v", err)
	}
}

func TestMessages_NewestFirstTextOnly(t *testing.T) {
	s := threadstore.New()
	th := s.CreateThread()
	if _, err := s.AppendUserMessage(th, "q"); err != nil {
		t.Fatalf("append: %v", err)
	}
	run, _ := s.CreateRun(th, "asst")
	call := remote.ToolCallRequest{CallID: "c1", ToolName: "wikipedia_search", Arguments: `{}`}
	if _, err := s.AppendAssistant(th, run.ID, "", []remote.ToolCallRequest{call}); err != nil {
		t.Fatalf("append assistant: %v", err)
	}
	if _, err := s.AppendAssistant(th, run.ID, "answer", nil); err != nil {
		t.Fatalf("append assistant: %v", err)
	}

	msgs, err := s.Messages(th)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "answer" || msgs[0].Role != remote.RoleAssistant || msgs[1].Role != remote.RoleUser {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	entries, _ := s.Entries(th)
	if len(entries) != 3 || entries[0].Kind != threadstore.KindUser {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestActiveRunBlocksMessagesAndRuns(t *testing.T) {
	s := threadstore.New()
	th := s.CreateThread()
	run, err := s.CreateRun(th, "asst")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.Status != remote.StatusQueued {
		t.Fatalf("new run should be queued, got %s", run.Status)
	}
	if _, err := s.AppendUserMessage(th, "x"); !errors.Is(err, threadstore.ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}
	if _, err := s.CreateRun(th, "asst"); !errors.Is(err, threadstore.ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}

	for _, to := range []remote.RunStatus{remote.StatusInProgress, remote.StatusCompleted} {
		if _, err := s.Transition(th, run.ID, to, nil, ""); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	if _, err := s.AppendUserMessage(th, "x"); err != nil {
		t.Fatalf("append after completion: %v", err)
	}
}

func TestTransition_RejectsInvalid(t *testing.T) {
	s := threadstore.New()
	th := s.CreateThread()
	run, _ := s.CreateRun(th, "asst")

	if _, err := s.Transition(th, run.ID, remote.StatusCompleted, nil, ""); !errors.Is(err, threadstore.ErrInvalidTransition) {
		t.Fatalf("queued -> completed should fail, got %v", err)
	}
	if _, err := s.Transition(th, run.ID, remote.StatusCancelled, nil, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := s.Transition(th, run.ID, remote.StatusInProgress, nil, ""); !errors.Is(err, threadstore.ErrInvalidTransition) {
		t.Fatalf("terminal run must not move, got %v", err)
	}
	if _, err := s.Transition(th, "run_missing", remote.StatusInProgress, nil, ""); !errors.Is(err, threadstore.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := s.Transition("thread_missing", run.ID, remote.StatusInProgress, nil, ""); !errors.Is(err, threadstore.ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestResolvePending(t *testing.T) {
	calls := []remote.ToolCallRequest{
		{CallID: "a", ToolName: "wikipedia_search"},
		{CallID: "b", ToolName: "duckduckgo_search"},
	}
	tests := []struct {
		name    string
		results []remote.ToolCallResult
		wantErr error
	}{
		{"exact cover in any order", []remote.ToolCallResult{{CallID: "b"}, {CallID: "a"}}, nil},
		{"missing result", []remote.ToolCallResult{{CallID: "a"}}, threadstore.ErrResultsMismatch},
		{"unknown id", []remote.ToolCallResult{{CallID: "a"}, {CallID: "z"}}, threadstore.ErrResultsMismatch},
		{"repeated id", []remote.ToolCallResult{{CallID: "a"}, {CallID: "a"}}, threadstore.ErrResultsMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := threadstore.New()
			th := s.CreateThread()
			run, _ := s.CreateRun(th, "asst")
			s.Transition(th, run.ID, remote.StatusInProgress, nil, "")
			waiting, err := s.Transition(th, run.ID, remote.StatusRequiresAction, calls, "")
			if err != nil || len(waiting.PendingCalls) != 2 {
				t.Fatalf("requires_action: %+v, %v", waiting, err)
			}

			got, err := s.ResolvePending(th, run.ID, tc.results)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got err %v want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil {
				return
			}
			if got.Status != remote.StatusInProgress || len(got.PendingCalls) != 0 {
				t.Fatalf("unexpected run %+v", got)
			}
			entries, _ := s.Entries(th)
			last := entries[len(entries)-1]
			if last.Kind != threadstore.KindToolResults || len(last.Results) != 2 || last.RunID != run.ID {
				t.Fatalf("unexpected results entry %+v", last)
			}
		})
	}
}

func TestResolvePending_RequiresWaitingRun(t *testing.T) {
	s := threadstore.New()
	th := s.CreateThread()
	run, _ := s.CreateRun(th, "asst")
	if _, err := s.ResolvePending(th, run.ID, nil); !errors.Is(err, threadstore.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := threadstore.New()
	th := s.CreateThread()
	run, _ := s.CreateRun(th, "asst")
	s.Transition(th, run.ID, remote.StatusInProgress, nil, "")
	got, _ := s.Transition(th, run.ID, remote.StatusRequiresAction, []remote.ToolCallRequest{{CallID: "a"}}, "")
	got.PendingCalls[0].CallID = "mutated"

	again, _ := s.Run(th, run.ID)
	if again.PendingCalls[0].CallID != "a" {
		t.Fatalf("store state leaked through returned run")
	}
	runs, _ := s.Runs(th)
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestTransition_AnswersAbandonedCalls(t *testing.T) {
	for _, to := range []remote.RunStatus{remote.StatusCancelled, remote.StatusCancelling, remote.StatusFailed, remote.StatusExpired} {
		t.Run(string(to), func(t *testing.T) {
			s := threadstore.New()
			th := s.CreateThread()
			run, _ := s.CreateRun(th, "asst")
			s.Transition(th, run.ID, remote.StatusInProgress, nil, "")
			calls := []remote.ToolCallRequest{{CallID: "a"}, {CallID: "b"}}
			s.AppendAssistant(th, run.ID, "", calls)
			s.Transition(th, run.ID, remote.StatusRequiresAction, calls, "")

			if _, err := s.Transition(th, run.ID, to, nil, ""); err != nil {
				t.Fatalf("transition: %v", err)
			}
			entries, _ := s.Entries(th)
			last := entries[len(entries)-1]
			if last.Kind != threadstore.KindToolResults || len(last.Results) != 2 {
				t.Fatalf("expected results entry, got %+v", last)
			}
			for i, r := range last.Results {
				if r.CallID != calls[i].CallID || !strings.HasPrefix(r.Output, "error: ") {
					t.Fatalf("unexpected result %+v", r)
				}
			}
		})
	}
}
