package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ejseo87/openai-assistants-2025/internal/fsops"
	"github.com/ejseo87/openai-assistants-2025/internal/render"
	"github.com/ejseo87/openai-assistants-2025/memory"
	"github.com/ejseo87/openai-assistants-2025/tools"
)

type fakeSurface struct {
	messages []string
	notices  []string
}

func (f *fakeSurface) Message(role, text string) {
	f.messages = append(f.messages, role+": "+text)
}

func (f *fakeSurface) Notify(kind render.NoticeKind, text string) {
	f.notices = append(f.notices, fmt.Sprintf("%d %s", kind, text))
}

type fakeHistory struct {
	msgs []memory.ChatMessage
	err  error
}

func (f fakeHistory) History(context.Context) ([]memory.ChatMessage, error) { return f.msgs, f.err }

type fakeDownloads []tools.Download

func (f fakeDownloads) Downloads() []tools.Download { return f }

func (f fakeDownloads) Download(n int) (tools.Download, bool) {
	if n < 1 || n > len(f) {
		return tools.Download{}, false
	}
	return f[n-1], true
}

func newTestREPL(t *testing.T) (*repl, *fakeSurface, *bytes.Buffer) {
	t.Helper()
	sb, err := fsops.New(t.TempDir())
	if err != nil {
		t.Fatalf("fsops.New: %v", err)
	}
	surface := &fakeSurface{}
	out := &bytes.Buffer{}
	return &repl{
		out:     out,
		surface: surface,
		downloads: fakeDownloads{
			{Filename: "report.txt", Content: "findings"},
		},
		history: fakeHistory{msgs: []memory.ChatMessage{
			{Role: memory.RoleUser, Text: "q"},
			{Role: memory.RoleAssistant, Text: "a"},
		}},
		sandbox: sb,
		now:     func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) },
	}, surface, out
}

func TestCommand_Quit(t *testing.T) {
	r, _, _ := newTestREPL(t)
	for _, line := range []string{"/quit", "/exit"} {
		if !r.command(context.Background(), line) {
			t.Fatalf("%s should quit", line)
		}
	}
	if r.command(context.Background(), "/help") {
		t.Fatal("/help should not quit")
	}
}

func TestCommand_History(t *testing.T) {
	r, surface, _ := newTestREPL(t)
	r.command(context.Background(), "/history")
	if strings.Join(surface.messages, "|") != "user: q|assistant: a" {
		t.Fatalf("unexpected messages %v", surface.messages)
	}

	r.history = fakeHistory{err: errors.New("boom")}
	r.command(context.Background(), "/history")
	if len(surface.notices) != 1 || !strings.Contains(surface.notices[0], "boom") {
		t.Fatalf("unexpected notices %v", surface.notices)
	}
}

func TestCommand_SaveNeverClobbers(t *testing.T) {
	r, surface, _ := newTestREPL(t)
	r.command(context.Background(), "/save 1")
	r.command(context.Background(), "/save 1")

	for _, name := range []string{"report.txt", "report-1.txt"} {
		b, err := os.ReadFile(filepath.Join(r.sandbox.Root(), name))
		if err != nil || string(b) != "findings" {
			t.Fatalf("%s: %q, %v", name, b, err)
		}
	}

	r.command(context.Background(), "/save 7")
	r.command(context.Background(), "/save x")
	last := surface.notices[len(surface.notices)-2:]
	if !strings.Contains(last[0], "no download #7") || !strings.Contains(last[1], "usage") {
		t.Fatalf("unexpected notices %v", last)
	}
}

func TestCommand_ExportThenOpen(t *testing.T) {
	r, _, out := newTestREPL(t)
	r.command(context.Background(), "/export")

	want := "transcript-20250301-093000.json"
	b, err := os.ReadFile(filepath.Join(r.sandbox.Root(), want))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(b), `"role": "assistant"`) {
		t.Fatalf("unexpected transcript %s", b)
	}

	r.command(context.Background(), "/files")
	if !strings.Contains(out.String(), want) {
		t.Fatalf("/files output %q", out.String())
	}
	out.Reset()
	r.command(context.Background(), "/open "+want)
	if !strings.Contains(out.String(), `"text": "q"`) {
		t.Fatalf("/open output %q", out.String())
	}
}

func TestCommand_RejectsEscapes(t *testing.T) {
	r, surface, _ := newTestREPL(t)
	r.command(context.Background(), "/export ../outside.json")
	r.command(context.Background(), "/open ../../etc/passwd")
	r.command(context.Background(), "/bogus")
	if len(surface.notices) != 3 {
		t.Fatalf("unexpected notices %v", surface.notices)
	}
	for _, n := range surface.notices[:2] {
		if !strings.Contains(n, "ERR_PATH_OUTSIDE_SANDBOX") {
			t.Fatalf("expected sandbox error, got %q", n)
		}
	}
	if !strings.Contains(surface.notices[2], "unknown command") {
		t.Fatalf("unexpected notice %q", surface.notices[2])
	}
}

func TestTurnGuard(t *testing.T) {
	var g turnGuard
	if g.interrupt() {
		t.Fatal("no turn in flight")
	}
	ctx, done := g.begin(context.Background())
	if !g.interrupt() {
		t.Fatal("turn should be interrupted")
	}
	if ctx.Err() == nil {
		t.Fatal("turn context should be cancelled")
	}
	done()
	if g.interrupt() {
		t.Fatal("finished turn must not be interrupted")
	}
}
