package fsops

import (
	"errors"
	"io/fs"
	"os"

	"github.com/ejseo87/openai-assistants-2025/internal/safety"
)

// ListFiles lists the entries of a directory relative to the root, non-recursively.
// Directories are suffixed by "/". A root that does not exist yet lists as empty.
func (s *Sandbox) ListFiles(relDir string) ([]string, error) {
	if relDir == "" {
		relDir = "."
	}
	absDir, err := safety.ValidateRelPath(s.root, relDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(absDir)
	if errors.Is(err, fs.ErrNotExist) && relDir == "." {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}
