package telemetry_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ejseo87/openai-assistants-2025/internal/telemetry"
)

// observeInto enables emission into a fresh artifacts dir and returns the events path.
func observeInto(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RA_ARTIFACTS_DIR", dir)
	t.Setenv("RA_OBSERVE_JSON", "1")
	return filepath.Join(dir, "events.jsonl")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read events.jsonl: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestEmit_Gating(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RA_ARTIFACTS_DIR", dir)
	t.Setenv("RA_OBSERVE_JSON", "0")

	telemetry.Emit("test_event", map[string]any{"foo": "bar"})

	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("expected no events file when observe=0, got err=%v", err)
	}
}

func TestEmit_HappyPath(t *testing.T) {
	path := observeInto(t)

	telemetry.Emit("test_event", map[string]any{"foo": "bar", "num": 42})

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	var event map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if event["event"] != "test_event" {
		t.Errorf("expected event=test_event, got %v", event["event"])
	}
	if event["foo"] != "bar" {
		t.Errorf("expected foo=bar, got %v", event["foo"])
	}
	if event["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", event["num"])
	}
	timeStr, ok := event["time"].(string)
	if !ok {
		t.Fatal("expected time field as string")
	}
	if _, err := time.Parse(time.RFC3339Nano, timeStr); err != nil {
		t.Errorf("time field not valid RFC3339Nano: %v", err)
	}
}

func TestEmit_ConcurrentLinesStayWhole(t *testing.T) {
	path := observeInto(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			telemetry.Emit("tick", map[string]any{"id": i, "pad": strings.Repeat("x", 512)})
		}(i)
	}
	wg.Wait()

	lines := readLines(t, path)
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line %d invalid JSON: %v", i+1, err)
		}
	}
}

func TestEmit_MapIsolation(t *testing.T) {
	observeInto(t)

	fields := map[string]any{"key": "value"}
	telemetry.Emit("test", fields)

	if len(fields) != 1 || fields["key"] != "value" {
		t.Fatalf("caller map mutated: %#v", fields)
	}
}

func TestEmit_ErrorHandling_MarshalError(t *testing.T) {
	path := observeInto(t)

	// NaN cannot be marshaled by encoding/json.
	telemetry.Emit("bad", map[string]any{"x": math.NaN()})

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no events file on marshal error, got err=%v", err)
	}
}

func TestEmit_ErrorHandling_ReadOnlyDir(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "ro")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, 0o755)
	t.Setenv("RA_ARTIFACTS_DIR", dir)
	t.Setenv("RA_OBSERVE_JSON", "1")

	// Must not panic; the failure goes to stderr.
	telemetry.Emit("test", map[string]any{"foo": "bar"})
}

func TestEmit_NilFields(t *testing.T) {
	path := observeInto(t)

	telemetry.Emit("nil_fields", nil)

	lines := readLines(t, path)
	var event map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(event) != 2 || event["event"] != "nil_fields" {
		t.Fatalf("expected exactly event and time, got %#v", event)
	}
}
