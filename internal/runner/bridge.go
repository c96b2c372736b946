package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
	"github.com/ejseo87/openai-assistants-2025/internal/telemetry"
)

// DefaultMaxToolRounds bounds how many times one turn may stop for tool outputs.
const DefaultMaxToolRounds = 16

const cancelTimeout = 10 * time.Second

// Sink receives what a turn produces, in generation order.
type Sink interface {
	OnTextCreated()
	OnTextDelta(text string)
	OnRunError(err error)
}

// Bridge drives a streaming run to a terminal status, resolving tool calls on the way.
type Bridge struct {
	rt            remote.Runtime
	exec          *Executor
	poller        *Poller
	maxToolRounds int
	logger        *slog.Logger
}

type BridgeOption func(*Bridge)

// WithMaxToolRounds overrides DefaultMaxToolRounds. Values below 1 are ignored.
func WithMaxToolRounds(n int) BridgeOption {
	return func(b *Bridge) {
		if n > 0 {
			b.maxToolRounds = n
		}
	}
}

func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

func NewBridge(rt remote.Runtime, exec *Executor, poller *Poller, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		rt:            rt,
		exec:          exec,
		poller:        poller,
		maxToolRounds: DefaultMaxToolRounds,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RunTurn starts a run of assistantID on threadID and loops until the run is terminal:
//
//	stream = StreamRun()
//	for status == requires_action { stream = SubmitToolOutputs(ExecuteAll(pending)) }
//
// Failure statuses are reported to sink and returned as *RunFailedError.
// When ctx is cancelled the remote run is cancelled as well.
func (b *Bridge) RunTurn(ctx context.Context, threadID, assistantID string, sink Sink) (remote.Run, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := b.logger.With("turn_id", turnID, "thread_id", threadID)

	stream, err := b.rt.StreamRun(ctx, threadID, assistantID)
	if err != nil {
		return remote.Run{}, fmt.Errorf("start run: %w", err)
	}

	var run remote.Run
	rounds := 0
	for {
		run, err = b.drain(ctx, stream, sink, run)
		_ = stream.Close()
		if err != nil {
			return b.abort(ctx, threadID, run, err)
		}

		if !run.Status.Terminal() && run.Status != remote.StatusRequiresAction {
			if run.ID == "" {
				return run, errors.New("stream ended before a run was reported")
			}
			log.Debug("stream ended early, polling run", "run_id", run.ID, "status", run.Status)
			run, err = b.poller.AwaitRun(ctx, threadID, run.ID)
			if err != nil {
				return b.abort(ctx, threadID, run, err)
			}
		}

		if run.Status != remote.StatusRequiresAction {
			return b.finish(ctx, run, sink)
		}

		if rounds >= b.maxToolRounds {
			b.cancelRemote(ctx, threadID, run.ID)
			err := fmt.Errorf("%w: run %s asked for tools %d times", ErrTooManyToolRounds, run.ID, rounds+1)
			sink.OnRunError(err)
			return run, err
		}
		rounds++

		stream, err = b.resolve(ctx, threadID, run)
		if err != nil {
			return b.abort(ctx, threadID, run, err)
		}
		log.Debug("submitted tool outputs", "run_id", run.ID, "round", rounds)
	}
}

// drain forwards text to sink and returns the last run snapshot seen. It stops
// early on requires_action since nothing more arrives until outputs are submitted.
func (b *Bridge) drain(ctx context.Context, stream remote.Stream, sink Sink, run remote.Run) (remote.Run, error) {
	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		ev := stream.Current()
		switch ev.Kind {
		case remote.EventTextCreated:
			sink.OnTextCreated()
		case remote.EventTextDelta:
			sink.OnTextDelta(ev.Text)
		case remote.EventRequiresAction:
			return mergeRun(run, ev.Run), nil
		case remote.EventRunStatus:
			run = mergeRun(run, ev.Run)
		}
	}
	if err := stream.Err(); err != nil {
		return run, err
	}
	return run, ctx.Err()
}

// mergeRun keeps identifiers learned from earlier events when a later one omits them.
func mergeRun(prev, next remote.Run) remote.Run {
	if next.ID == "" {
		next.ID = prev.ID
	}
	if next.ThreadID == "" {
		next.ThreadID = prev.ThreadID
	}
	if next.AssistantID == "" {
		next.AssistantID = prev.AssistantID
	}
	if next.Status == "" {
		next.Status = prev.Status
	}
	return next
}

// resolve answers every pending call of run and resumes it.
func (b *Bridge) resolve(ctx context.Context, threadID string, run remote.Run) (remote.Stream, error) {
	calls := run.PendingCalls
	if len(calls) == 0 {
		full, err := b.rt.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, fmt.Errorf("retrieve run: %w", err)
		}
		calls = full.PendingCalls
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("run %s requires action but lists no tool calls", run.ID)
	}
	results := b.exec.ExecuteAll(ctx, calls)
	stream, err := b.rt.SubmitToolOutputs(ctx, threadID, run.ID, results)
	if err != nil {
		return nil, fmt.Errorf("submit tool outputs: %w", err)
	}
	return stream, nil
}

func (b *Bridge) finish(ctx context.Context, run remote.Run, sink Sink) (remote.Run, error) {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	telemetry.Emit("run_status", map[string]any{
		"turn_id": turnID,
		"run_id":  run.ID,
		"status":  string(run.Status),
	})
	if !run.Status.Failed() {
		return run, nil
	}
	err := &RunFailedError{RunID: run.ID, Status: run.Status, Message: run.LastError}
	b.logger.Warn("run failed", "turn_id", turnID, "run_id", run.ID, "status", run.Status, "reason", run.LastError)
	sink.OnRunError(err)
	return run, err
}

// abort ends the turn with err. A run left active would keep the thread
// locked for the next message, so it is cancelled remotely.
func (b *Bridge) abort(ctx context.Context, threadID string, run remote.Run, err error) (remote.Run, error) {
	if ctx.Err() != nil {
		b.cancelRemote(ctx, threadID, run.ID)
		return run, ctx.Err()
	}
	if run.Status.Active() {
		b.cancelRemote(ctx, threadID, run.ID)
	}
	return run, err
}

// cancelRemote is best effort: the turn is already over for the caller.
func (b *Bridge) cancelRemote(ctx context.Context, threadID, runID string) {
	if runID == "" {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if _, err := b.rt.CancelRun(cctx, threadID, runID); err != nil {
		b.logger.Warn("cancel run", "run_id", runID, "err", err)
	}
}
