package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ejseo87/openai-assistants-2025/internal/safety"
)

// maxNameAttempts bounds the numbered variants CreateFile tries.
const maxNameAttempts = 100

// WriteFile writes content to relPath under the root, replacing any existing
// file, and returns the absolute path written.
func (s *Sandbox) WriteFile(relPath, content string) (string, error) {
	absPath, err := s.prepare(relPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return absPath, nil
}

// CreateFile writes content to relPath without replacing anything: when the
// name is taken it tries "name-1.ext", "name-2.ext" and so on.
func (s *Sandbox) CreateFile(relPath, content string) (string, error) {
	ext := filepath.Ext(relPath)
	stem := strings.TrimSuffix(relPath, ext)
	for i := 0; i < maxNameAttempts; i++ {
		candidate := relPath
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		absPath, err := s.prepare(candidate)
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return "", err
		}
		return absPath, f.Close()
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", relPath, maxNameAttempts)
}

// prepare validates relPath for writing and creates its parent directories.
func (s *Sandbox) prepare(relPath string) (string, error) {
	absPath, err := safety.ValidateWritePath(s.root, relPath)
	if err != nil {
		return "", err // PathError unchanged
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", err
	}
	return absPath, nil
}
