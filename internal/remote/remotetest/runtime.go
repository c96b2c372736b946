// Package remotetest provides a scripted in-memory remote.Runtime for tests.
package remotetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

// ErrNoStream is returned when a test did not script enough streams.
var ErrNoStream = errors.New("remotetest: no scripted stream left")

// Runtime answers from scripted data and records every mutating call.
// Assistants and messages behave like a real store; runs, retrievals and
// streams replay what the test scripted.
type Runtime struct {
	mu sync.Mutex

	assistants []remote.Assistant
	messages   map[string][]remote.Message
	threads    int

	runLists  map[string][][]remote.Run
	retrieves map[string][]remote.Run
	streams   []remote.Stream
	failures  map[string]error

	created     []remote.AssistantSpec
	submissions [][]remote.ToolCallResult
	cancelled   []string
	calls       map[string]int
}

func New() *Runtime {
	return &Runtime{
		messages:  map[string][]remote.Message{},
		runLists:  map[string][][]remote.Run{},
		retrieves: map[string][]remote.Run{},
		failures:  map[string]error{},
		calls:     map[string]int{},
	}
}

// AddAssistant stores an existing assistant definition; later ones are listed first.
func (r *Runtime) AddAssistant(a remote.Assistant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assistants = append(r.assistants, a)
}

// AddMessage appends a message to threadID as if the runtime had written it.
func (r *Runtime) AddMessage(threadID string, role remote.Role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendMessage(threadID, role, text)
}

// ScriptRuns sets successive ListRuns answers for threadID. The last one repeats.
func (r *Runtime) ScriptRuns(threadID string, snapshots ...[]remote.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runLists[threadID] = snapshots
}

// ScriptRetrieve sets successive RetrieveRun answers for runID. The last one repeats.
func (r *Runtime) ScriptRetrieve(runID string, snapshots ...remote.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrieves[runID] = snapshots
}

// ScriptStreams queues streams handed out by StreamRun and SubmitToolOutputs, in order.
func (r *Runtime) ScriptStreams(streams ...remote.Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams = append(r.streams, streams...)
}

// Fail makes the named method return err from now on.
func (r *Runtime) Fail(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[method] = err
}

// Calls reports how often method was invoked.
func (r *Runtime) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *Runtime) CreatedAssistants() []remote.AssistantSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.created)
}

func (r *Runtime) Submissions() [][]remote.ToolCallResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.submissions)
}

func (r *Runtime) CancelledRuns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.cancelled)
}

func (r *Runtime) enter(method string) error {
	r.calls[method]++
	return r.failures[method]
}

func (r *Runtime) appendMessage(threadID string, role remote.Role, text string) remote.Message {
	msgs := r.messages[threadID]
	m := remote.Message{
		ID:       fmt.Sprintf("msg-%d", len(msgs)+1),
		ThreadID: threadID,
		Role:     role,
		Text:     text,
	}
	r.messages[threadID] = append(msgs, m)
	return m
}

func (r *Runtime) ListAssistants(_ context.Context, limit int) ([]remote.Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListAssistants"); err != nil {
		return nil, err
	}
	out := slices.Clone(r.assistants)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Runtime) CreateAssistant(_ context.Context, spec remote.AssistantSpec) (remote.Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("CreateAssistant"); err != nil {
		return remote.Assistant{}, err
	}
	r.created = append(r.created, spec)
	a := remote.Assistant{ID: fmt.Sprintf("asst-%d", len(r.assistants)+1), Name: spec.Name}
	r.assistants = append(r.assistants, a)
	return a, nil
}

func (r *Runtime) CreateThread(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("CreateThread"); err != nil {
		return "", err
	}
	r.threads++
	return fmt.Sprintf("thread-%d", r.threads), nil
}

func (r *Runtime) CreateMessage(_ context.Context, threadID, text string) (remote.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("CreateMessage"); err != nil {
		return remote.Message{}, err
	}
	return r.appendMessage(threadID, remote.RoleUser, text), nil
}

// ListMessages returns newest first.
func (r *Runtime) ListMessages(_ context.Context, threadID string) ([]remote.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListMessages"); err != nil {
		return nil, err
	}
	out := slices.Clone(r.messages[threadID])
	slices.Reverse(out)
	return out, nil
}

func (r *Runtime) ListRuns(_ context.Context, threadID string) ([]remote.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListRuns"); err != nil {
		return nil, err
	}
	script := r.runLists[threadID]
	if len(script) == 0 {
		return nil, nil
	}
	head := script[0]
	if len(script) > 1 {
		r.runLists[threadID] = script[1:]
	}
	return slices.Clone(head), nil
}

func (r *Runtime) RetrieveRun(_ context.Context, threadID, runID string) (remote.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("RetrieveRun"); err != nil {
		return remote.Run{}, err
	}
	script := r.retrieves[runID]
	if len(script) == 0 {
		return remote.Run{}, fmt.Errorf("remotetest: run %s not found", runID)
	}
	head := script[0]
	if len(script) > 1 {
		r.retrieves[runID] = script[1:]
	}
	head.ThreadID = threadID
	return head, nil
}

func (r *Runtime) StreamRun(context.Context, string, string) (remote.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("StreamRun"); err != nil {
		return nil, err
	}
	return r.nextStream()
}

func (r *Runtime) SubmitToolOutputs(_ context.Context, _, _ string, results []remote.ToolCallResult) (remote.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("SubmitToolOutputs"); err != nil {
		return nil, err
	}
	r.submissions = append(r.submissions, slices.Clone(results))
	return r.nextStream()
}

func (r *Runtime) CancelRun(_ context.Context, threadID, runID string) (remote.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("CancelRun"); err != nil {
		return remote.Run{}, err
	}
	r.cancelled = append(r.cancelled, runID)
	return remote.Run{ID: runID, ThreadID: threadID, Status: remote.StatusCancelling}, nil
}

func (r *Runtime) nextStream() (remote.Stream, error) {
	if len(r.streams) == 0 {
		return nil, ErrNoStream
	}
	s := r.streams[0]
	r.streams = r.streams[1:]
	return s, nil
}

var _ remote.Runtime = (*Runtime)(nil)
