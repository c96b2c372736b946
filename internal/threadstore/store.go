// Package threadstore keeps assistants, threads and runs in memory for
// runtimes that have no server-side state of their own.
//
// Entries are append-only. A thread has at most one active run; the store
// enforces the run lifecycle so a backend cannot skip states.
package threadstore

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

var (
	ErrThreadNotFound    = errors.New("thread not found")
	ErrRunNotFound       = errors.New("run not found")
	ErrAssistantNotFound = errors.New("assistant not found")
	ErrRunActive         = errors.New("thread has an active run")
	ErrInvalidTransition = errors.New("invalid run transition")
	ErrResultsMismatch   = errors.New("tool results do not match pending calls")
)

type EntryKind int

const (
	KindUser EntryKind = iota + 1
	KindAssistant
	KindToolResults
)

func (k EntryKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	case KindToolResults:
		return "tool_results"
	}
	return "unknown"
}

// Entry is one item of a thread transcript. An assistant entry may carry
// text, tool calls or both; a tool-results entry answers the calls of the
// assistant entry before it.
type Entry struct {
	ID        string
	Kind      EntryKind
	Text      string
	ToolCalls []remote.ToolCallRequest
	Results   []remote.ToolCallResult
	RunID     string
}

func (e Entry) clone() Entry {
	e.ToolCalls = slices.Clone(e.ToolCalls)
	e.Results = slices.Clone(e.Results)
	return e
}

// AssistantRecord is a stored assistant definition.
type AssistantRecord struct {
	remote.Assistant
	Spec remote.AssistantSpec
}

type thread struct {
	entries []Entry
	runs    []remote.Run
}

func (t *thread) run(runID string) (int, bool) {
	for i := range t.runs {
		if t.runs[i].ID == runID {
			return i, true
		}
	}
	return 0, false
}

func (t *thread) activeRun() (remote.Run, bool) {
	for _, r := range t.runs {
		if r.Status.Active() {
			return r, true
		}
	}
	return remote.Run{}, false
}

// Store is safe for concurrent use. Every read returns copies.
type Store struct {
	mu         sync.RWMutex
	assistants []AssistantRecord
	threads    map[string]*thread
}

func New() *Store {
	return &Store{threads: map[string]*thread{}}
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func (s *Store) CreateAssistant(spec remote.AssistantSpec) remote.Assistant {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := AssistantRecord{
		Assistant: remote.Assistant{ID: newID("asst"), Name: spec.Name},
		Spec:      spec,
	}
	rec.Spec.Tools = slices.Clone(spec.Tools)
	s.assistants = append(s.assistants, rec)
	return rec.Assistant
}

// ListAssistants returns up to limit assistants, newest first. limit <= 0 means all.
func (s *Store) ListAssistants(limit int) []remote.Assistant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]remote.Assistant, 0, len(s.assistants))
	for i := len(s.assistants) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.assistants[i].Assistant)
	}
	return out
}

func (s *Store) Assistant(id string) (AssistantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assistants {
		if a.ID == id {
			a.Spec.Tools = slices.Clone(a.Spec.Tools)
			return a, nil
		}
	}
	return AssistantRecord{}, fmt.Errorf("%w: %s", ErrAssistantNotFound, id)
}

func (s *Store) CreateThread() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID("thread")
	s.threads[id] = &thread{}
	return id
}

func (s *Store) thread(id string) (*thread, error) {
	t, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	return t, nil
}

// AppendUserMessage adds a user entry. It fails with ErrRunActive while a run is active.
func (s *Store) AppendUserMessage(threadID, text string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return Entry{}, err
	}
	if r, busy := t.activeRun(); busy {
		return Entry{}, fmt.Errorf("%w: run %s is %s", ErrRunActive, r.ID, r.Status)
	}
	e := Entry{ID: newID("msg"), Kind: KindUser, Text: text}
	t.entries = append(t.entries, e)
	return e, nil
}

// AppendAssistant records what runID generated.
func (s *Store) AppendAssistant(threadID, runID, text string, calls []remote.ToolCallRequest) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return Entry{}, err
	}
	if _, ok := t.run(runID); !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	e := Entry{ID: newID("msg"), Kind: KindAssistant, Text: text, ToolCalls: slices.Clone(calls), RunID: runID}
	t.entries = append(t.entries, e)
	return e.clone(), nil
}

// Entries returns the transcript oldest first.
func (s *Store) Entries(threadID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.thread(threadID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.clone()
	}
	return out, nil
}

// Messages lists the text-bearing user and assistant entries newest first.
func (s *Store) Messages(threadID string) ([]remote.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.thread(threadID)
	if err != nil {
		return nil, err
	}
	var out []remote.Message
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if e.Text == "" || e.Kind == KindToolResults {
			continue
		}
		role := remote.RoleUser
		if e.Kind == KindAssistant {
			role = remote.RoleAssistant
		}
		out = append(out, remote.Message{ID: e.ID, ThreadID: threadID, Role: role, Text: e.Text})
	}
	return out, nil
}

// CreateRun adds a queued run. It fails with ErrRunActive while another run is active.
func (s *Store) CreateRun(threadID, assistantID string) (remote.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return remote.Run{}, err
	}
	if r, busy := t.activeRun(); busy {
		return remote.Run{}, fmt.Errorf("%w: run %s is %s", ErrRunActive, r.ID, r.Status)
	}
	run := remote.Run{ID: newID("run"), ThreadID: threadID, AssistantID: assistantID, Status: remote.StatusQueued}
	t.runs = append(t.runs, run)
	return run, nil
}

var transitions = map[remote.RunStatus][]remote.RunStatus{
	remote.StatusQueued: {
		remote.StatusInProgress, remote.StatusCancelling, remote.StatusCancelled, remote.StatusFailed,
	},
	remote.StatusInProgress: {
		remote.StatusRequiresAction, remote.StatusCompleted, remote.StatusFailed, remote.StatusCancelling,
		remote.StatusCancelled, remote.StatusIncomplete, remote.StatusExpired,
	},
	remote.StatusRequiresAction: {
		remote.StatusInProgress, remote.StatusCancelling, remote.StatusCancelled, remote.StatusFailed,
		remote.StatusExpired,
	},
	remote.StatusCancelling: {remote.StatusCancelled, remote.StatusFailed},
}

// CanTransition reports whether a run may move from one status to another.
func CanTransition(from, to remote.RunStatus) bool {
	return slices.Contains(transitions[from], to)
}

// Transition moves a run to status to. pending is kept only for requires_action.
// Leaving requires_action answers the pending calls with an error result.
func (s *Store) Transition(threadID, runID string, to remote.RunStatus, pending []remote.ToolCallRequest, lastErr string) (remote.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return remote.Run{}, err
	}
	i, ok := t.run(runID)
	if !ok {
		return remote.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run := &t.runs[i]
	if !CanTransition(run.Status, to) {
		return remote.Run{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, run.Status, to)
	}
	if run.Status == remote.StatusRequiresAction && len(run.PendingCalls) > 0 {
		// Calls left unanswered would orphan the tool_use entry in every later window.
		t.entries = append(t.entries, abandonedResults(runID, run.PendingCalls, to))
	}
	run.Status = to
	run.PendingCalls = nil
	if to == remote.StatusRequiresAction {
		run.PendingCalls = slices.Clone(pending)
	}
	if lastErr != "" {
		run.LastError = lastErr
	}
	return cloneRun(*run), nil
}

// ResolvePending stores results for a requires_action run and puts it back
// in progress. results must answer every pending call exactly once.
func (s *Store) ResolvePending(threadID, runID string, results []remote.ToolCallResult) (remote.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return remote.Run{}, err
	}
	i, ok := t.run(runID)
	if !ok {
		return remote.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run := &t.runs[i]
	if run.Status != remote.StatusRequiresAction {
		return remote.Run{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, run.Status, remote.StatusInProgress)
	}
	if err := matchResults(run.PendingCalls, results); err != nil {
		return remote.Run{}, err
	}
	t.entries = append(t.entries, Entry{
		ID:      newID("msg"),
		Kind:    KindToolResults,
		Results: slices.Clone(results),
		RunID:   runID,
	})
	run.Status = remote.StatusInProgress
	run.PendingCalls = nil
	return cloneRun(*run), nil
}

// abandonedResults answers pending calls of a run that left requires_action
// without outputs.
func abandonedResults(runID string, calls []remote.ToolCallRequest, to remote.RunStatus) Entry {
	results := make([]remote.ToolCallResult, 0, len(calls))
	for _, c := range calls {
		results = append(results, remote.ToolCallResult{CallID: c.CallID, Output: "error: run " + string(to)})
	}
	return Entry{ID: newID("msg"), Kind: KindToolResults, Results: results, RunID: runID}
}

func matchResults(calls []remote.ToolCallRequest, results []remote.ToolCallResult) error {
	if len(calls) != len(results) {
		return fmt.Errorf("%w: %d calls, %d results", ErrResultsMismatch, len(calls), len(results))
	}
	want := make(map[string]bool, len(calls))
	for _, c := range calls {
		want[c.CallID] = true
	}
	for _, r := range results {
		if !want[r.CallID] {
			return fmt.Errorf("%w: unexpected or repeated call id %q", ErrResultsMismatch, r.CallID)
		}
		delete(want, r.CallID)
	}
	return nil
}

func (s *Store) Run(threadID, runID string) (remote.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.thread(threadID)
	if err != nil {
		return remote.Run{}, err
	}
	i, ok := t.run(runID)
	if !ok {
		return remote.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return cloneRun(t.runs[i]), nil
}

// Runs lists the runs of a thread newest first.
func (s *Store) Runs(threadID string) ([]remote.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.thread(threadID)
	if err != nil {
		return nil, err
	}
	out := make([]remote.Run, 0, len(t.runs))
	for i := len(t.runs) - 1; i >= 0; i-- {
		out = append(out, cloneRun(t.runs[i]))
	}
	return out, nil
}

func cloneRun(r remote.Run) remote.Run {
	r.PendingCalls = slices.Clone(r.PendingCalls)
	return r
}
