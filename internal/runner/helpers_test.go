package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ejseo87/openai-assistants-2025/internal/runner"
	"github.com/ejseo87/openai-assistants-2025/tools"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tool(name string, fn tools.ToolFunc) tools.ToolDefinition {
	return tools.ToolDefinition{Name: name, Function: fn}
}

// newExecutor registers a small tool set: wikipedia_search echoes its query,
// boom always fails, and kaboom panics.
func newExecutor(t *testing.T) *runner.Executor {
	t.Helper()
	reg, err := tools.NewRegistry(
		tool("wikipedia_search", func(_ context.Context, in json.RawMessage) (string, error) {
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(in, &args); err != nil {
				return "", err
			}
			return "Page: " + args.Query + "\nSummary: about " + args.Query, nil
		}),
		tool("boom", func(context.Context, json.RawMessage) (string, error) {
			return "", errors.New("network down")
		}),
		tool("kaboom", func(context.Context, json.RawMessage) (string, error) {
			panic("kaboom")
		}),
		tool("noargs", func(_ context.Context, in json.RawMessage) (string, error) {
			return string(in), nil
		}),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return runner.NewExecutor(reg, quietLogger())
}

type recordingSink struct {
	created int
	text    strings.Builder
	errs    []error
}

func (s *recordingSink) OnTextCreated()          { s.created++ }
func (s *recordingSink) OnTextDelta(text string) { s.text.WriteString(text) }
func (s *recordingSink) OnRunError(err error)    { s.errs = append(s.errs, err) }
