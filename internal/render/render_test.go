package render_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ejseo87/openai-assistants-2025/internal/render"
	"github.com/ejseo87/openai-assistants-2025/tools"
)

type fakeSurface struct {
	starts   []string
	replaces []string
	notices  []string
}

func (f *fakeSurface) StartMessage(role string) { f.starts = append(f.starts, role) }
func (f *fakeSurface) Replace(full string)      { f.replaces = append(f.replaces, full) }
func (f *fakeSurface) Notify(_ render.NoticeKind, text string) {
	f.notices = append(f.notices, text)
}

func TestRenderer_DeltasConcatenateAndReplaceFullBuffer(t *testing.T) {
	s := &fakeSurface{}
	r := render.New(s)

	r.OnTextCreated()
	r.OnTextDelta("Quantum ")
	r.OnTextDelta("computing is...")

	if r.Text() != "Quantum computing is..." {
		t.Fatalf("got %q", r.Text())
	}
	want := []string{"Quantum ", "Quantum computing is..."}
	if len(s.replaces) != len(want) {
		t.Fatalf("got %d replaces", len(s.replaces))
	}
	for i := range want {
		if s.replaces[i] != want[i] {
			t.Fatalf("replace %d: got %q want %q", i, s.replaces[i], want[i])
		}
	}
	if len(s.starts) != 1 || s.starts[0] != "assistant" {
		t.Fatalf("unexpected starts %v", s.starts)
	}
}

func TestRenderer_EscapesDollar(t *testing.T) {
	s := &fakeSurface{}
	r := render.New(s)
	r.OnTextDelta("costs $5 and $6")

	if got := s.replaces[0]; got != `costs \$5 and \$6` {
		t.Fatalf("got %q", got)
	}
	if r.Text() != "costs $5 and $6" {
		t.Fatalf("raw text should be unescaped, got %q", r.Text())
	}
}

func TestRenderer_PlainTextEscaper(t *testing.T) {
	s := &fakeSurface{}
	r := render.New(s, render.WithEscaper(render.PlainText))
	r.OnTextDelta("$5")
	if s.replaces[0] != "$5" {
		t.Fatalf("got %q", s.replaces[0])
	}
}

func TestRenderer_NewBlockResetsBuffer(t *testing.T) {
	s := &fakeSurface{}
	r := render.New(s)
	r.OnTextCreated()
	r.OnTextDelta("first")
	r.OnTextCreated()
	r.OnTextDelta("second")
	if r.Text() != "second" {
		t.Fatalf("got %q", r.Text())
	}
	if len(s.starts) != 2 {
		t.Fatalf("expected two message blocks, got %d", len(s.starts))
	}
}

func TestRenderer_Downloads(t *testing.T) {
	s := &fakeSurface{}
	r := render.New(s)
	var offerer tools.Offerer = r
	offerer.OfferDownload(tools.Download{Filename: "a.txt", Content: "abc", MIME: "text/plain"})
	offerer.OfferDownload(tools.Download{Filename: "b.txt", Content: "d"})

	ds := r.Downloads()
	if len(ds) != 2 || ds[0].Filename != "a.txt" || ds[1].Filename != "b.txt" {
		t.Fatalf("unexpected downloads %+v", ds)
	}
	if d, ok := r.Download(2); !ok || d.Content != "d" {
		t.Fatalf("Download(2) = %+v, %v", d, ok)
	}
	if _, ok := r.Download(3); ok {
		t.Fatal("Download(3) should not exist")
	}
	if len(s.notices) != 2 || !strings.Contains(s.notices[0], "a.txt") {
		t.Fatalf("unexpected notices %v", s.notices)
	}
}

func TestRenderer_RunError(t *testing.T) {
	s := &fakeSurface{}
	r := render.New(s)
	r.OnRunError(errors.New("run run-1 ended with status failed"))
	if len(s.notices) != 1 || !strings.Contains(s.notices[0], "failed") {
		t.Fatalf("unexpected notices %v", s.notices)
	}
}

func TestTerminal_WritesOnlyUnseenSuffix(t *testing.T) {
	var buf bytes.Buffer
	term := render.NewTerminal(&buf)
	r := render.New(term, render.WithEscaper(render.PlainText))

	r.OnTextCreated()
	r.OnTextDelta("Quantum ")
	r.OnTextDelta("computing is...")
	term.EndLine()

	out := buf.String()
	if strings.Count(out, "Quantum") != 1 {
		t.Fatalf("prefix written more than once: %q", out)
	}
	if !strings.HasSuffix(out, "Quantum computing is...\n") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTerminal_NotifyClosesOpenLine(t *testing.T) {
	var buf bytes.Buffer
	term := render.NewTerminal(&buf)
	term.StartMessage("assistant")
	term.Replace("partial")
	term.Notify(render.NoticeError, "boom")

	out := buf.String()
	if !strings.Contains(out, "partial\n") || !strings.Contains(out, "error: boom") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTerminal_NoticeMidMessageContinuesWithoutRepeat(t *testing.T) {
	var buf bytes.Buffer
	term := render.NewTerminal(&buf)
	r := render.New(term, render.WithEscaper(render.PlainText))

	r.OnTextCreated()
	r.OnTextDelta("first part")
	term.Notify(render.NoticeDownload, "download #1 ready")
	r.OnTextDelta(" second part")
	term.EndLine()

	out := buf.String()
	if strings.Count(out, "first part") != 1 {
		t.Fatalf("buffer reprinted after notice: %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	last := lines[len(lines)-1]
	if !strings.Contains(last, "Assistant") || strings.Contains(last, "first") || !strings.HasSuffix(last, " second part") {
		t.Fatalf("continuation should be labelled and carry only new text: %q", last)
	}
}
