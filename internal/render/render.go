// Package render presents a streaming answer: deltas accumulate into a
// buffer and the whole escaped buffer is handed to the Surface each time, so
// what is shown is always a complete prefix of the answer.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ejseo87/openai-assistants-2025/tools"
)

// NoticeKind classifies out-of-band lines shown next to the transcript.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeDownload
	NoticeError
)

// Surface is where rendered output goes.
type Surface interface {
	// StartMessage opens a new message block for role.
	StartMessage(role string)
	// Replace shows full as the current content of the open block.
	Replace(full string)
	Notify(kind NoticeKind, text string)
}

// Escape protects characters a markdown host would interpret; a lone $ would
// otherwise open a math span.
func Escape(text string) string {
	return strings.ReplaceAll(text, "$", `\$`)
}

// PlainText leaves text untouched, for surfaces that do not interpret markup.
func PlainText(text string) string { return text }

type Option func(*Renderer)

// WithEscaper replaces Escape.
func WithEscaper(fn func(string) string) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.escape = fn
		}
	}
}

// Renderer implements runner.Sink and tools.Offerer.
type Renderer struct {
	mu        sync.Mutex
	surface   Surface
	escape    func(string) string
	buf       strings.Builder
	open      bool
	downloads []tools.Download
}

func New(surface Surface, opts ...Option) *Renderer {
	r := &Renderer{surface: surface, escape: Escape}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnTextCreated starts a new assistant message.
func (r *Renderer) OnTextCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
	r.open = true
	r.surface.StartMessage("assistant")
}

// OnTextDelta appends text and re-renders the whole message.
func (r *Renderer) OnTextDelta(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		r.buf.Reset()
		r.open = true
		r.surface.StartMessage("assistant")
	}
	r.buf.WriteString(text)
	r.surface.Replace(r.escape(r.buf.String()))
}

func (r *Renderer) OnRunError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	r.surface.Notify(NoticeError, err.Error())
}

// OfferDownload keeps d in memory and tells the user it is available.
func (r *Renderer) OfferDownload(d tools.Download) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads = append(r.downloads, d)
	r.surface.Notify(NoticeDownload,
		fmt.Sprintf("download #%d ready: %s (%d bytes)", len(r.downloads), d.Filename, len(d.Content)))
}

// Text returns the raw, unescaped text of the current message.
func (r *Renderer) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Downloads returns every download offered so far, oldest first.
func (r *Renderer) Downloads() []tools.Download {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tools.Download(nil), r.downloads...)
}

// Download returns the n-th offered download, counting from 1.
func (r *Renderer) Download(n int) (tools.Download, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 || n > len(r.downloads) {
		return tools.Download{}, false
	}
	return r.downloads[n-1], true
}

// EndTurn closes the open message so the next delta starts a fresh one.
func (r *Renderer) EndTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
}
