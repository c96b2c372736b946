package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/tidwall/gjson"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

const runListLimit = 20

// OpenAI talks to the hosted Assistants v2 API.
type OpenAI struct {
	client openai.Client
}

var _ remote.Runtime = (*OpenAI)(nil)

func NewOpenAI(client openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

func (o *OpenAI) ListAssistants(ctx context.Context, limit int) ([]remote.Assistant, error) {
	q := openai.BetaAssistantListParams{Order: openai.BetaAssistantListParamsOrderDesc}
	if limit > 0 {
		q.Limit = openai.Int(int64(limit))
	}
	page, err := o.client.Beta.Assistants.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	out := make([]remote.Assistant, 0, len(page.Data))
	for _, a := range page.Data {
		out = append(out, remote.Assistant{ID: a.ID, Name: a.Name})
	}
	return out, nil
}

func (o *OpenAI) CreateAssistant(ctx context.Context, spec remote.AssistantSpec) (remote.Assistant, error) {
	tools := make([]openai.AssistantToolUnionParam, 0, len(spec.Tools))
	for _, t := range spec.Tools {
		tools = append(tools, openai.AssistantToolParamOfFunction(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Object()),
		}))
	}
	a, err := o.client.Beta.Assistants.New(ctx, openai.BetaAssistantNewParams{
		Model:        openai.ChatModel(spec.Model),
		Name:         openai.String(spec.Name),
		Instructions: openai.String(spec.Instructions),
		Tools:        tools,
	})
	if err != nil {
		return remote.Assistant{}, fmt.Errorf("create assistant: %w", err)
	}
	return remote.Assistant{ID: a.ID, Name: a.Name}, nil
}

func (o *OpenAI) CreateThread(ctx context.Context) (string, error) {
	th, err := o.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return th.ID, nil
}

func (o *OpenAI) CreateMessage(ctx context.Context, threadID, text string) (remote.Message, error) {
	m, err := o.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role:    openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return remote.Message{}, fmt.Errorf("create message: %w", err)
	}
	return toMessage(*m), nil
}

// ListMessages returns the newest page of messages, newest first.
func (o *OpenAI) ListMessages(ctx context.Context, threadID string) ([]remote.Message, error) {
	page, err := o.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		Limit: openai.Int(100),
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]remote.Message, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, toMessage(m))
	}
	return out, nil
}

func toMessage(m openai.Message) remote.Message {
	var b strings.Builder
	for _, c := range m.Content {
		if c.Type == "text" {
			b.WriteString(c.Text.Value)
		}
	}
	return remote.Message{ID: m.ID, ThreadID: m.ThreadID, Role: remote.Role(m.Role), Text: b.String()}
}

func (o *OpenAI) ListRuns(ctx context.Context, threadID string) ([]remote.Run, error) {
	page, err := o.client.Beta.Threads.Runs.List(ctx, threadID, openai.BetaThreadRunListParams{
		Order: openai.BetaThreadRunListParamsOrderDesc,
		Limit: openai.Int(runListLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]remote.Run, 0, len(page.Data))
	for _, r := range page.Data {
		out = append(out, toRun(r))
	}
	return out, nil
}

func (o *OpenAI) RetrieveRun(ctx context.Context, threadID, runID string) (remote.Run, error) {
	r, err := o.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return remote.Run{}, fmt.Errorf("retrieve run: %w", err)
	}
	return toRun(*r), nil
}

func (o *OpenAI) CancelRun(ctx context.Context, threadID, runID string) (remote.Run, error) {
	r, err := o.client.Beta.Threads.Runs.Cancel(ctx, threadID, runID)
	if err != nil {
		return remote.Run{}, fmt.Errorf("cancel run: %w", err)
	}
	return toRun(*r), nil
}

func toRun(r openai.Run) remote.Run {
	run := remote.Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		AssistantID: r.AssistantID,
		Status:      remote.RunStatus(r.Status),
		LastError:   r.LastError.Message,
	}
	if run.Status == remote.StatusRequiresAction {
		for _, c := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
			run.PendingCalls = append(run.PendingCalls, remote.ToolCallRequest{
				CallID:    c.ID,
				ToolName:  c.Function.Name,
				Arguments: c.Function.Arguments,
			})
		}
	}
	return run
}

func (o *OpenAI) StreamRun(ctx context.Context, threadID, assistantID string) (remote.Stream, error) {
	s := o.client.Beta.Threads.Runs.NewStreaming(ctx, threadID, openai.BetaThreadRunNewParams{AssistantID: assistantID})
	return newEventStream(s)
}

func (o *OpenAI) SubmitToolOutputs(ctx context.Context, threadID, runID string, results []remote.ToolCallResult) (remote.Stream, error) {
	outputs := make([]openai.BetaThreadRunSubmitToolOutputsParamsToolOutput, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(r.CallID),
			Output:     openai.String(r.Output),
		})
	}
	s := o.client.Beta.Threads.Runs.SubmitToolOutputsStreaming(ctx, threadID, runID, openai.BetaThreadRunSubmitToolOutputsParams{
		ToolOutputs: outputs,
	})
	return newEventStream(s)
}

// eventStream adapts the SDK assistant event stream. Events the core does
// not react to (run steps, message bookkeeping) are skipped.
type eventStream struct {
	sdk *ssestream.Stream[openai.AssistantStreamEventUnion]
	cur remote.Event
}

// newEventStream surfaces request errors at call time rather than on the
// first Next.
func newEventStream(s *ssestream.Stream[openai.AssistantStreamEventUnion]) (remote.Stream, error) {
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &eventStream{sdk: s}, nil
}

func (s *eventStream) Next() bool {
	for s.sdk.Next() {
		if ev, ok := convertStreamEvent(s.sdk.Current().RawJSON()); ok {
			s.cur = ev
			return true
		}
	}
	return false
}

func (s *eventStream) Current() remote.Event { return s.cur }
func (s *eventStream) Err() error            { return s.sdk.Err() }
func (s *eventStream) Close() error          { return s.sdk.Close() }

// convertStreamEvent decodes one {"event": ..., "data": ...} envelope.
func convertStreamEvent(raw string) (remote.Event, bool) {
	env := gjson.Parse(raw)
	name := env.Get("event").String()
	data := env.Get("data")
	switch {
	case name == "thread.message.created":
		return remote.Event{Kind: remote.EventTextCreated}, true
	case name == "thread.message.delta":
		var b strings.Builder
		for _, part := range data.Get("delta.content").Array() {
			if part.Get("type").String() == "text" {
				b.WriteString(part.Get("text.value").String())
			}
		}
		if b.Len() == 0 {
			return remote.Event{}, false
		}
		return remote.Event{Kind: remote.EventTextDelta, Text: b.String()}, true
	case name == "thread.run.requires_action":
		return remote.Event{Kind: remote.EventRequiresAction, Run: runFromJSON(data)}, true
	case strings.HasPrefix(name, "thread.run.") && !strings.HasPrefix(name, "thread.run.step."):
		return remote.Event{Kind: remote.EventRunStatus, Run: runFromJSON(data)}, true
	}
	return remote.Event{}, false
}

func runFromJSON(data gjson.Result) remote.Run {
	run := remote.Run{
		ID:          data.Get("id").String(),
		ThreadID:    data.Get("thread_id").String(),
		AssistantID: data.Get("assistant_id").String(),
		Status:      remote.RunStatus(data.Get("status").String()),
		LastError:   data.Get("last_error.message").String(),
	}
	for _, c := range data.Get("required_action.submit_tool_outputs.tool_calls").Array() {
		run.PendingCalls = append(run.PendingCalls, remote.ToolCallRequest{
			CallID:    c.Get("id").String(),
			ToolName:  c.Get("function.name").String(),
			Arguments: c.Get("function.arguments").String(),
		})
	}
	return run
}
