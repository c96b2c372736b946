// Package fsops performs the few file operations the assistant allows: all
// of them user-initiated and confined to one export root.
package fsops

import (
	"github.com/ejseo87/openai-assistants-2025/internal/safety"
)

// Sandbox addresses files relative to an absolute export root.
type Sandbox struct {
	root string
}

// New resolves root (created lazily on first write). An empty root means the working directory.
func New(root string) (*Sandbox, error) {
	abs, err := safety.InitRoot(root)
	if err != nil {
		return nil, err
	}
	return &Sandbox{root: abs}, nil
}

func (s *Sandbox) Root() string { return s.root }
