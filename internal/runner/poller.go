package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = 2 * time.Minute
)

// Poller waits for runs the runtime is still working on.
type Poller struct {
	rt       remote.Runtime
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewPoller returns a Poller; zero durations fall back to the defaults.
func NewPoller(rt remote.Runtime, interval, timeout time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{rt: rt, interval: interval, timeout: timeout, logger: logger}
}

// busy reports statuses the runtime moves forward on its own.
func busy(s remote.RunStatus) bool {
	return s.Pending() || s == remote.StatusCancelling
}

// AwaitIdle returns once no run on threadID is queued, in progress or cancelling.
func (p *Poller) AwaitIdle(ctx context.Context, threadID string) error {
	deadline := time.Now().Add(p.timeout)
	for {
		runs, err := p.rt.ListRuns(ctx, threadID)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		blocking := -1
		for i, r := range runs {
			if busy(r.Status) {
				blocking = i
				break
			}
		}
		if blocking < 0 {
			return nil
		}
		r := runs[blocking]
		p.logger.Debug("waiting for run", "thread_id", threadID, "run_id", r.ID, "status", r.Status)
		if err := p.wait(ctx, deadline); err != nil {
			if err == ErrRunTimeout {
				return fmt.Errorf("%w: run %s on thread %s still %s after %s", ErrRunTimeout, r.ID, threadID, r.Status, p.timeout)
			}
			return err
		}
	}
}

// AwaitRun polls one run until the runtime stops working on it and returns its snapshot.
func (p *Poller) AwaitRun(ctx context.Context, threadID, runID string) (remote.Run, error) {
	deadline := time.Now().Add(p.timeout)
	for {
		run, err := p.rt.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return remote.Run{}, fmt.Errorf("retrieve run: %w", err)
		}
		if !busy(run.Status) {
			return run, nil
		}
		if err := p.wait(ctx, deadline); err != nil {
			if err == ErrRunTimeout {
				return run, fmt.Errorf("%w: run %s still %s after %s", ErrRunTimeout, runID, run.Status, p.timeout)
			}
			return run, err
		}
	}
}

// wait sleeps one interval, cut short by ctx or the deadline.
func (p *Poller) wait(ctx context.Context, deadline time.Time) error {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return ErrRunTimeout
	}
	d := p.interval
	if d > remaining {
		d = remaining
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
