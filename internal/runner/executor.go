package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
	"github.com/ejseo87/openai-assistants-2025/internal/telemetry"
	"github.com/ejseo87/openai-assistants-2025/tools"
)

// Executor resolves tool calls through a Registry. Failures never escape: they
// become the output text so the agent can see them and react.
type Executor struct {
	registry *tools.Registry
	logger   *slog.Logger
}

func NewExecutor(registry *tools.Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, logger: logger}
}

// ExecuteAll runs calls one after another and returns one result per call, in call order.
func (e *Executor) ExecuteAll(ctx context.Context, calls []remote.ToolCallRequest) []remote.ToolCallResult {
	out := make([]remote.ToolCallResult, 0, len(calls))
	for _, call := range calls {
		out = append(out, e.Execute(ctx, call))
	}
	return out
}

// Execute runs a single call. It never returns an error and never panics.
func (e *Executor) Execute(ctx context.Context, call remote.ToolCallRequest) remote.ToolCallResult {
	start := time.Now()
	output, err := e.dispatch(ctx, call)
	if err != nil {
		output = failureOutput(call.ToolName, err)
	}
	e.record(ctx, call, output, err, time.Since(start))
	return remote.ToolCallResult{CallID: call.CallID, Output: output}
}

func (e *Executor) dispatch(ctx context.Context, call remote.ToolCallRequest) (out string, err error) {
	def, err := e.registry.Resolve(call.ToolName)
	if err != nil {
		return "", err
	}

	args := strings.TrimSpace(call.Arguments)
	if args == "" {
		args = "{}"
	}
	if !gjson.Valid(args) {
		return "", fmt.Errorf("%w: invalid JSON", tools.ErrMalformedArguments)
	}
	if !gjson.Parse(args).IsObject() {
		return "", fmt.Errorf("%w: expected a JSON object", tools.ErrMalformedArguments)
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("%w: panic: %v", tools.ErrToolExecution, r)
		}
	}()
	out, err = def.Function(ctx, json.RawMessage(args))
	if err != nil {
		return "", fmt.Errorf("%w: %w", tools.ErrToolExecution, err)
	}
	return out, nil
}

// failureOutput renders err as the text handed back to the agent.
func failureOutput(tool string, err error) string {
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return fmt.Sprintf("error: unknown tool %q", tool)
	case errors.Is(err, tools.ErrMalformedArguments):
		detail := strings.TrimPrefix(err.Error(), tools.ErrMalformedArguments.Error()+": ")
		return fmt.Sprintf("error: malformed arguments for %q: %s", tool, detail)
	default:
		detail := strings.TrimPrefix(err.Error(), tools.ErrToolExecution.Error()+": ")
		return fmt.Sprintf("error: %s failed: %s", tool, detail)
	}
}

func errorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, tools.ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, tools.ErrMalformedArguments):
		return "malformed_arguments"
	default:
		return "tool_error"
	}
}

// record emits telemetry and a log line. Raw arguments and outputs are never written.
func (e *Executor) record(ctx context.Context, call remote.ToolCallRequest, output string, err error, d time.Duration) {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"tool_name":   call.ToolName,
		"call_id":     call.CallID,
		"duration_ms": d.Milliseconds(),
		"input_size":  len(call.Arguments),
		"output_size": len(output),
		"turn_id":     turnID,
		"error":       nil,
	}
	if class := errorClass(err); class != "" {
		fields["error"] = class
	}
	telemetry.Emit("tool_exec", fields)

	if err != nil {
		e.logger.Warn("tool call failed",
			"tool", call.ToolName, "call_id", call.CallID, "duration", d, "err", err)
		return
	}
	e.logger.Info("tool call",
		"tool", call.ToolName, "call_id", call.CallID, "duration", d, "output_bytes", len(output))
}
