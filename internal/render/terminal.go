package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	infoStyle      = lipgloss.NewStyle().Faint(true)
	downloadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Terminal is a line-oriented Surface. Since a terminal cannot redraw cheaply,
// Replace writes only the part of full that has not been shown yet.
type Terminal struct {
	w     io.Writer
	shown string
	open  bool
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func label(role string) string {
	if role == "user" {
		return userLabel.Render("You")
	}
	return assistantLabel.Render("Assistant")
}

func (t *Terminal) StartMessage(role string) {
	t.closeLine()
	fmt.Fprintf(t.w, "%s: ", label(role))
	t.shown = ""
	t.open = true
}

func (t *Terminal) Replace(full string) {
	switch {
	case !strings.HasPrefix(full, t.shown):
		// Earlier output changed; reprint the message on a fresh line.
		t.closeLine()
		fmt.Fprintf(t.w, "%s: %s", label("assistant"), full)
	case !t.open:
		// A notice interrupted the message; continue it on a labelled line.
		fmt.Fprintf(t.w, "%s: %s", label("assistant"), full[len(t.shown):])
	default:
		io.WriteString(t.w, full[len(t.shown):])
	}
	t.shown = full
	t.open = true
}

func (t *Terminal) Notify(kind NoticeKind, text string) {
	t.closeLine()
	var style lipgloss.Style
	switch kind {
	case NoticeDownload:
		style = downloadStyle
	case NoticeError:
		style = errorStyle
		text = "error: " + text
	default:
		style = infoStyle
	}
	fmt.Fprintln(t.w, style.Render(text))
}

// Message prints a complete message, e.g. when replaying history.
func (t *Terminal) Message(role, text string) {
	t.closeLine()
	fmt.Fprintf(t.w, "%s: %s\n", label(role), text)
}

// Prompt prints the input prompt for the user.
func (t *Terminal) Prompt() {
	t.closeLine()
	fmt.Fprintf(t.w, "%s: ", label("user"))
}

// EndLine finishes an open message line, if any.
func (t *Terminal) EndLine() { t.closeLine() }

func (t *Terminal) closeLine() {
	if t.open {
		io.WriteString(t.w, "\n")
		t.open = false
	}
}
