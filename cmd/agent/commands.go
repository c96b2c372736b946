package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ejseo87/openai-assistants-2025/internal/fsops"
	"github.com/ejseo87/openai-assistants-2025/internal/render"
	"github.com/ejseo87/openai-assistants-2025/memory"
	"github.com/ejseo87/openai-assistants-2025/tools"
)

const helpText = `commands:
  /history         show the conversation so far
  /downloads       list files the assistant offered
  /save <n>        write download n into the export root
  /export [name]   write the transcript as JSON into the export root
  /files           list the export root
  /open <name>     print a file from the export root
  /quit            leave`

type historySource interface {
	History(ctx context.Context) ([]memory.ChatMessage, error)
}

type downloadSource interface {
	Downloads() []tools.Download
	Download(n int) (tools.Download, bool)
}

type messageSurface interface {
	Message(role, text string)
	Notify(kind render.NoticeKind, text string)
}

// repl handles slash commands. Every disk access goes through sandbox.
type repl struct {
	out       io.Writer
	surface   messageSurface
	downloads downloadSource
	history   historySource
	sandbox   *fsops.Sandbox
	now       func() time.Time
}

// command runs one slash command and reports whether the user asked to quit.
func (r *repl) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	var err error
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/history":
		err = r.showHistory(ctx)
	case "/downloads":
		r.listDownloads()
	case "/save":
		err = r.save(arg)
	case "/export":
		err = r.export(ctx, arg)
	case "/files":
		err = r.listFiles()
	case "/open":
		err = r.open(arg)
	default:
		err = fmt.Errorf("unknown command %s (try /help)", name)
	}
	if err != nil {
		r.surface.Notify(render.NoticeError, err.Error())
	}
	return false
}

func (r *repl) showHistory(ctx context.Context) error {
	msgs, err := r.history.History(ctx)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		r.surface.Notify(render.NoticeInfo, "no messages yet")
		return nil
	}
	for _, m := range msgs {
		r.surface.Message(string(m.Role), m.Text)
	}
	return nil
}

func (r *repl) listDownloads() {
	ds := r.downloads.Downloads()
	if len(ds) == 0 {
		r.surface.Notify(render.NoticeInfo, "no downloads yet")
		return
	}
	for i, d := range ds {
		fmt.Fprintf(r.out, "#%d %s (%d bytes)\n", i+1, d.Filename, len(d.Content))
	}
}

func (r *repl) save(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("usage: /save <n>")
	}
	d, ok := r.downloads.Download(n)
	if !ok {
		return fmt.Errorf("no download #%d", n)
	}
	path, err := r.sandbox.CreateFile(d.Filename, d.Content)
	if err != nil {
		return fmt.Errorf("save %s: %w", d.Filename, err)
	}
	r.surface.Notify(render.NoticeDownload, "saved "+path)
	return nil
}

func (r *repl) export(ctx context.Context, name string) error {
	msgs, err := r.history.History(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		now := time.Now
		if r.now != nil {
			now = r.now
		}
		name = "transcript-" + now().Format("20060102-150405") + ".json"
	}
	data, err := memory.EncodeTranscript(msgs)
	if err != nil {
		return err
	}
	path, err := r.sandbox.WriteFile(name, string(data))
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	r.surface.Notify(render.NoticeDownload, fmt.Sprintf("exported %d messages to %s", len(msgs), path))
	return nil
}

func (r *repl) listFiles() error {
	names, err := r.sandbox.ListFiles("")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		r.surface.Notify(render.NoticeInfo, "export root is empty: "+r.sandbox.Root())
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(r.out, n)
	}
	return nil
}

func (r *repl) open(name string) error {
	if name == "" {
		return fmt.Errorf("usage: /open <name>")
	}
	content, err := r.sandbox.ReadFile(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, strings.TrimRight(content, "\n"))
	return nil
}
