package runner_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

func TestExecutor_Outputs(t *testing.T) {
	exec := newExecutor(t)
	cases := []struct {
		name string
		call remote.ToolCallRequest
		want string
	}{
		{"Success", remote.ToolCallRequest{CallID: "c1", ToolName: "wikipedia_search", Arguments: `{"query":"AI"}`},
			"Page: AI\nSummary: about AI"},
		{"UnknownTool", remote.ToolCallRequest{CallID: "c2", ToolName: "delete_everything", Arguments: `{}`},
			`error: unknown tool "delete_everything"`},
		{"InvalidJSON", remote.ToolCallRequest{CallID: "c3", ToolName: "wikipedia_search", Arguments: `{"query":`},
			`error: malformed arguments for "wikipedia_search": invalid JSON`},
		{"NotAnObject", remote.ToolCallRequest{CallID: "c4", ToolName: "wikipedia_search", Arguments: `["AI"]`},
			`error: malformed arguments for "wikipedia_search": expected a JSON object`},
		{"BodyError", remote.ToolCallRequest{CallID: "c5", ToolName: "boom", Arguments: `{}`},
			"error: boom failed: network down"},
		{"Panic", remote.ToolCallRequest{CallID: "c6", ToolName: "kaboom", Arguments: `{}`},
			"error: kaboom failed: panic: kaboom"},
		{"EmptyArgumentsAreEmptyObject", remote.ToolCallRequest{CallID: "c7", ToolName: "noargs", Arguments: ""},
			"{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := exec.Execute(context.Background(), tc.call)
			if res.CallID != tc.call.CallID {
				t.Fatalf("call id: got %q want %q", res.CallID, tc.call.CallID)
			}
			if res.Output != tc.want {
				t.Fatalf("output: got %q want %q", res.Output, tc.want)
			}
		})
	}
}

func TestExecutor_ExecuteAll_OneResultPerCall(t *testing.T) {
	exec := newExecutor(t)
	calls := []remote.ToolCallRequest{
		{CallID: "a", ToolName: "wikipedia_search", Arguments: `{"query":"x"}`},
		{CallID: "b", ToolName: "missing", Arguments: `{}`},
		{CallID: "c", ToolName: "boom", Arguments: `{}`},
	}
	results := exec.ExecuteAll(context.Background(), calls)
	if len(results) != len(calls) {
		t.Fatalf("got %d results for %d calls", len(results), len(calls))
	}
	for i := range calls {
		if results[i].CallID != calls[i].CallID {
			t.Errorf("result %d: call id %q want %q", i, results[i].CallID, calls[i].CallID)
		}
		if results[i].Output == "" {
			t.Errorf("result %d: empty output", i)
		}
	}
}

func TestExecutor_ToolExecEvent_NoRawPayload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RA_ARTIFACTS_DIR", dir)
	t.Setenv("RA_OBSERVE_JSON", "1")

	exec := newExecutor(t)
	exec.Execute(context.Background(), remote.ToolCallRequest{CallID: "c1", ToolName: "wikipedia_search", Arguments: `{"query":"secret-topic"}`})
	exec.Execute(context.Background(), remote.ToolCallRequest{CallID: "c2", ToolName: "nope", Arguments: `{}`})

	data, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if strings.Contains(string(data), "secret-topic") {
		t.Fatal("raw arguments leaked into telemetry")
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %d", len(lines))
	}

	var ok, failed map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ok); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &failed); err != nil {
		t.Fatal(err)
	}
	if ok["event"] != "tool_exec" || ok["tool_name"] != "wikipedia_search" || ok["error"] != nil {
		t.Errorf("unexpected success event %#v", ok)
	}
	if v, _ := ok["output_size"].(float64); v <= 0 {
		t.Errorf("output_size should be > 0, got %v", ok["output_size"])
	}
	if failed["error"] != "unknown_tool" {
		t.Errorf("unexpected error class %v", failed["error"])
	}
}
