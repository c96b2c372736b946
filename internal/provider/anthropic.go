package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
	"github.com/ejseo87/openai-assistants-2025/internal/telemetry"
	"github.com/ejseo87/openai-assistants-2025/internal/threadstore"
	"github.com/ejseo87/openai-assistants-2025/internal/windowing"
)

const (
	DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest
	DefaultTokenBudget    = 60000
)

// ErrWindowTooSmall marks a run that could not be sent because its newest
// exchange alone exceeds the token budget.
var ErrWindowTooSmall = errors.New("newest exchange exceeds token budget")

type AnthropicOptions struct {
	Model           string
	MaxOutputTokens int
	TokenBudget     int
	Logger          *slog.Logger
}

// Anthropic runs the assistant lifecycle on top of the stateless Messages
// API. Assistants, threads and runs live in a threadstore.Store; every run
// generates one streamed message and stops in requires_action when the
// model asks for tools.
type Anthropic struct {
	client anthropic.Client
	store  *threadstore.Store
	opts   AnthropicOptions
	logger *slog.Logger
}

var _ remote.Runtime = (*Anthropic)(nil)

func NewAnthropic(client anthropic.Client, store *threadstore.Store, opts AnthropicOptions) *Anthropic {
	if opts.Model == "" {
		opts.Model = string(DefaultAnthropicModel)
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 4096
	}
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = DefaultTokenBudget
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Anthropic{client: client, store: store, opts: opts, logger: logger}
}

func (a *Anthropic) ListAssistants(_ context.Context, limit int) ([]remote.Assistant, error) {
	return a.store.ListAssistants(limit), nil
}

func (a *Anthropic) CreateAssistant(_ context.Context, spec remote.AssistantSpec) (remote.Assistant, error) {
	return a.store.CreateAssistant(spec), nil
}

func (a *Anthropic) CreateThread(context.Context) (string, error) {
	return a.store.CreateThread(), nil
}

func (a *Anthropic) CreateMessage(_ context.Context, threadID, text string) (remote.Message, error) {
	e, err := a.store.AppendUserMessage(threadID, text)
	if err != nil {
		return remote.Message{}, err
	}
	return remote.Message{ID: e.ID, ThreadID: threadID, Role: remote.RoleUser, Text: text}, nil
}

func (a *Anthropic) ListMessages(_ context.Context, threadID string) ([]remote.Message, error) {
	return a.store.Messages(threadID)
}

func (a *Anthropic) ListRuns(_ context.Context, threadID string) ([]remote.Run, error) {
	return a.store.Runs(threadID)
}

func (a *Anthropic) RetrieveRun(_ context.Context, threadID, runID string) (remote.Run, error) {
	return a.store.Run(threadID, runID)
}

func (a *Anthropic) CancelRun(_ context.Context, threadID, runID string) (remote.Run, error) {
	return a.store.Transition(threadID, runID, remote.StatusCancelled, nil, "cancelled by client")
}

func (a *Anthropic) StreamRun(ctx context.Context, threadID, assistantID string) (remote.Stream, error) {
	asst, err := a.store.Assistant(assistantID)
	if err != nil {
		return nil, err
	}
	run, err := a.store.CreateRun(threadID, assistantID)
	if err != nil {
		return nil, err
	}
	queued := remote.Event{Kind: remote.EventRunStatus, Run: run}
	run, err = a.store.Transition(threadID, run.ID, remote.StatusInProgress, nil, "")
	if err != nil {
		return nil, err
	}
	return a.generate(ctx, asst, run, queued, remote.Event{Kind: remote.EventRunStatus, Run: run}), nil
}

func (a *Anthropic) SubmitToolOutputs(ctx context.Context, threadID, runID string, results []remote.ToolCallResult) (remote.Stream, error) {
	run, err := a.store.ResolvePending(threadID, runID, results)
	if err != nil {
		return nil, err
	}
	asst, err := a.store.Assistant(run.AssistantID)
	if err != nil {
		return nil, err
	}
	return a.generate(ctx, asst, run, remote.Event{Kind: remote.EventRunStatus, Run: run}), nil
}

// generate opens one Messages stream for an in-progress run. Setup failures
// fail the run instead of the call, so callers observe them as a status.
func (a *Anthropic) generate(ctx context.Context, asst threadstore.AssistantRecord, run remote.Run, head ...remote.Event) remote.Stream {
	s := &messageStream{
		ctx:      ctx,
		store:    a.store,
		run:      run,
		queue:    head,
		partials: map[int64]*partialCall{},
	}

	entries, err := a.store.Entries(run.ThreadID)
	if err != nil {
		s.fail(err)
		return s
	}
	window, stats := windowing.PrepareSendWindow(entries, a.opts.TokenBudget, windowing.HeuristicCounter{})
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"run_id":             run.ID,
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	if stats.OverBudgetNewest || len(window) == 0 {
		s.fail(ErrWindowTooSmall)
		return s
	}

	model := asst.Spec.Model
	if model == "" {
		model = a.opts.Model
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(a.opts.MaxOutputTokens),
		Messages:  toMessages(window),
		Tools:     toTools(asst.Spec.Tools),
	}
	if sys := strings.TrimSpace(asst.Spec.Instructions); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	a.logger.Debug("anthropic generate", "run_id", run.ID, "model", model, "messages", len(params.Messages))
	s.sdk = a.client.Messages.NewStreaming(ctx, params)
	return s
}

func toTools(schemas []remote.ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		obj := s.Object()
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        s.Name,
			Description: anthropic.String(s.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: obj["properties"],
				Required:   s.RequiredNames(),
			},
		}})
	}
	return out
}

// toMessages converts transcript entries into alternating user/assistant
// messages. Consecutive entries with the same role are merged.
func toMessages(entries []threadstore.Entry) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(entries))
	push := func(role anthropic.MessageParamRole, blocks []anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	for _, e := range entries {
		var blocks []anthropic.ContentBlockParamUnion
		switch e.Kind {
		case threadstore.KindUser:
			blocks = append(blocks, anthropic.NewTextBlock(e.Text))
			push(anthropic.MessageParamRoleUser, blocks)
		case threadstore.KindAssistant:
			if e.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(e.Text))
			}
			for _, c := range e.ToolCalls {
				args := strings.TrimSpace(c.Arguments)
				if args == "" {
					args = "{}"
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(c.CallID, json.RawMessage(args), c.ToolName))
			}
			push(anthropic.MessageParamRoleAssistant, blocks)
		case threadstore.KindToolResults:
			for _, r := range e.Results {
				blocks = append(blocks, anthropic.NewToolResultBlock(r.CallID, r.Output, strings.HasPrefix(r.Output, "error: ")))
			}
			push(anthropic.MessageParamRoleUser, blocks)
		}
	}
	return out
}

type partialCall struct {
	id   string
	name string
	args strings.Builder
}

// messageStream turns SDK message events into run events and records the
// generated message when the SDK stream ends.
type messageStream struct {
	ctx   context.Context
	store *threadstore.Store
	sdk   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	run   remote.Run

	queue []remote.Event
	cur   remote.Event
	err   error
	done  bool

	text        strings.Builder
	textStarted bool
	partials    map[int64]*partialCall
	order       []int64
	stop        anthropic.StopReason
}

func (s *messageStream) Next() bool {
	for {
		if len(s.queue) > 0 {
			s.cur, s.queue = s.queue[0], s.queue[1:]
			return true
		}
		if s.done || s.sdk == nil {
			return false
		}
		if s.sdk.Next() {
			s.handle(s.sdk.Current())
			continue
		}
		s.finish()
	}
}

func (s *messageStream) Current() remote.Event { return s.cur }
func (s *messageStream) Err() error            { return s.err }

func (s *messageStream) Close() error {
	if s.sdk == nil {
		return nil
	}
	return s.sdk.Close()
}

func (s *messageStream) handle(ev anthropic.MessageStreamEventUnion) {
	switch v := ev.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if v.ContentBlock.Type == "tool_use" {
			s.partials[v.Index] = &partialCall{id: v.ContentBlock.ID, name: v.ContentBlock.Name}
			s.order = append(s.order, v.Index)
		}
	case anthropic.ContentBlockDeltaEvent:
		switch d := v.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			if d.Text == "" {
				return
			}
			if !s.textStarted {
				s.textStarted = true
				s.queue = append(s.queue, remote.Event{Kind: remote.EventTextCreated})
			}
			s.text.WriteString(d.Text)
			s.queue = append(s.queue, remote.Event{Kind: remote.EventTextDelta, Text: d.Text})
		case anthropic.InputJSONDelta:
			if pc := s.partials[v.Index]; pc != nil {
				pc.args.WriteString(d.PartialJSON)
			}
		}
	case anthropic.MessageDeltaEvent:
		s.stop = v.Delta.StopReason
	}
}

// finish records the generated message and moves the run to its next status.
func (s *messageStream) finish() {
	s.done = true
	if err := s.sdk.Err(); err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			s.err = ctxErr
			return
		}
		s.fail(err)
		return
	}

	calls := make([]remote.ToolCallRequest, 0, len(s.order))
	for _, idx := range s.order {
		pc := s.partials[idx]
		calls = append(calls, remote.ToolCallRequest{CallID: pc.id, ToolName: pc.name, Arguments: pc.args.String()})
	}
	if _, err := s.store.AppendAssistant(s.run.ThreadID, s.run.ID, s.text.String(), slices.Clip(calls)); err != nil {
		s.err = err
		return
	}

	switch {
	case s.stop == anthropic.StopReasonToolUse && len(calls) > 0:
		s.transition(remote.EventRequiresAction, remote.StatusRequiresAction, calls, "")
	case s.stop == anthropic.StopReasonMaxTokens:
		s.transition(remote.EventRunStatus, remote.StatusIncomplete, nil, "max_tokens")
	default:
		s.transition(remote.EventRunStatus, remote.StatusCompleted, nil, "")
	}
}

func (s *messageStream) fail(cause error) {
	s.done = true
	s.transition(remote.EventRunStatus, remote.StatusFailed, nil, cause.Error())
}

func (s *messageStream) transition(kind remote.EventKind, to remote.RunStatus, calls []remote.ToolCallRequest, lastErr string) {
	run, err := s.store.Transition(s.run.ThreadID, s.run.ID, to, calls, lastErr)
	if err != nil {
		s.err = fmt.Errorf("run %s: %w", s.run.ID, err)
		return
	}
	s.run = run
	s.queue = append(s.queue, remote.Event{Kind: kind, Run: run})
}
