package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
	"github.com/ejseo87/openai-assistants-2025/internal/runner"
	"github.com/ejseo87/openai-assistants-2025/internal/telemetry"
)

// ErrThreadBusy is returned to a caller that posts while another turn is in flight.
var ErrThreadBusy = errors.New("thread busy")

const (
	DefaultAssistantName = "Research Assistant"
	DefaultModel         = "gpt-4o-mini"

	// assistantLookupLimit bounds the linear search over recent definitions.
	assistantLookupLimit = 5
)

// DefaultInstructions tell the hosted agent how to use the research tools.
const DefaultInstructions = `You are a research expert.

Your task is to search both Wikipedia and DuckDuckGo to gather comprehensive and accurate information about the question provided by the user.

When you find a relevant website through DuckDuckGo, you must scrape the content from that website with the function tool named web_scraping. Use this scraped content to thoroughly research and formulate a detailed answer to the question.

Combine the information from Wikipedia searches, DuckDuckGo searches and the websites you scraped. The final answer must be well organized and detailed, and include citations with links (URLs) for all sources used.

Finally, save your research to a .txt file with the function tool named save_to_text. The content must match the detailed findings, including all relevant sources and citations.

Do NOT make a download link and do NOT use sandbox.`

type Options struct {
	AssistantName string
	Instructions  string
	Model         string
	Tools         []remote.ToolSchema
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.AssistantName == "" {
		o.AssistantName = DefaultAssistantName
	}
	if o.Instructions == "" {
		o.Instructions = DefaultInstructions
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Session owns exactly one assistant and one thread for a user.
type Session struct {
	rt     remote.Runtime
	poller *runner.Poller
	bridge *runner.Bridge
	opts   Options

	mu        sync.Mutex
	assistant remote.Assistant
	threadID  string

	busy atomic.Bool
}

func NewSession(rt remote.Runtime, poller *runner.Poller, bridge *runner.Bridge, opts Options) *Session {
	return &Session{rt: rt, poller: poller, bridge: bridge, opts: opts.withDefaults()}
}

// EnsureSession returns the session's assistant and thread, creating them on first use.
// An existing assistant with the configured name is reused.
func (s *Session) EnsureSession(ctx context.Context) (remote.Assistant, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threadID != "" {
		return s.assistant, s.threadID, nil
	}

	if s.assistant.ID == "" {
		a, err := s.findOrCreateAssistant(ctx)
		if err != nil {
			return remote.Assistant{}, "", err
		}
		s.assistant = a
	}

	threadID, err := s.rt.CreateThread(ctx)
	if err != nil {
		return remote.Assistant{}, "", fmt.Errorf("create thread: %w", err)
	}
	s.threadID = threadID
	s.opts.Logger.Info("session ready", "assistant_id", s.assistant.ID, "thread_id", threadID)
	return s.assistant, s.threadID, nil
}

func (s *Session) findOrCreateAssistant(ctx context.Context) (remote.Assistant, error) {
	existing, err := s.rt.ListAssistants(ctx, assistantLookupLimit)
	if err != nil {
		return remote.Assistant{}, fmt.Errorf("list assistants: %w", err)
	}
	for _, a := range existing {
		if a.Name == s.opts.AssistantName {
			s.opts.Logger.Debug("reusing assistant", "assistant_id", a.ID)
			return a, nil
		}
	}
	a, err := s.rt.CreateAssistant(ctx, remote.AssistantSpec{
		Name:         s.opts.AssistantName,
		Instructions: s.opts.Instructions,
		Model:        s.opts.Model,
		Tools:        s.opts.Tools,
	})
	if err != nil {
		return remote.Assistant{}, fmt.Errorf("create assistant: %w", err)
	}
	s.opts.Logger.Info("created assistant", "assistant_id", a.ID, "model", s.opts.Model)
	return a, nil
}

// PostUserMessage waits for the thread to go idle and appends text as a user message.
func (s *Session) PostUserMessage(ctx context.Context, text string) (remote.Message, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return remote.Message{}, ErrThreadBusy
	}
	defer s.busy.Store(false)
	return s.post(ctx, text)
}

func (s *Session) post(ctx context.Context, text string) (remote.Message, error) {
	if strings.TrimSpace(text) == "" {
		return remote.Message{}, errors.New("message is empty")
	}
	_, threadID, err := s.EnsureSession(ctx)
	if err != nil {
		return remote.Message{}, err
	}
	if err := s.poller.AwaitIdle(ctx, threadID); err != nil {
		return remote.Message{}, err
	}
	msg, err := s.rt.CreateMessage(ctx, threadID, text)
	if err != nil {
		return remote.Message{}, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// Ask posts text and runs one turn to a terminal status, streaming into sink.
// The thread stays reserved for the whole turn.
func (s *Session) Ask(ctx context.Context, text string, sink runner.Sink) (remote.Run, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return remote.Run{}, ErrThreadBusy
	}
	defer s.busy.Store(false)

	ctx, turnID := telemetry.EnsureTurnID(ctx)
	telemetry.EmitLocalFeatures(ctx, text)

	if _, err := s.post(ctx, text); err != nil {
		return remote.Run{}, err
	}
	s.mu.Lock()
	assistantID, threadID := s.assistant.ID, s.threadID
	s.mu.Unlock()

	telemetry.Emit("turn_started", map[string]any{
		"turn_id":   turnID,
		"thread_id": threadID,
	})
	tap := &answerTap{Sink: sink}
	run, err := s.bridge.RunTurn(ctx, threadID, assistantID, tap)
	if err == nil {
		telemetry.EmitAnswerFeatures(ctx, tap.text.String())
	}
	return run, err
}

// History returns the thread's messages oldest first. Before the first turn it is empty.
func (s *Session) History(ctx context.Context) ([]ChatMessage, error) {
	s.mu.Lock()
	threadID := s.threadID
	s.mu.Unlock()
	if threadID == "" {
		return nil, nil
	}
	msgs, err := s.rt.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return fromRemote(msgs), nil
}

// answerTap keeps a copy of the streamed answer for feature telemetry.
type answerTap struct {
	runner.Sink
	text strings.Builder
}

func (t *answerTap) OnTextDelta(text string) {
	t.text.WriteString(text)
	t.Sink.OnTextDelta(text)
}
