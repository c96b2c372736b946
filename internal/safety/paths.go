// Package safety keeps user-initiated file writes inside the export root.
package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathError reports a sandbox policy violation with a stable code.
type PathError struct {
	Code    string
	Message string
}

func (e PathError) Error() string {
	return e.Code + ": " + e.Message
}

const (
	CodeOutsideRoot = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedRead  = "ERR_DENIED_READ"
	CodeDeniedWrite = "ERR_DENIED_WRITE"
	CodeNotAFile    = "ERR_NOT_A_FILE"
	CodeEmptyName   = "ERR_EMPTY_NAME"
)

// InitRoot resolves the absolute export root, defaulting to the working directory.
func InitRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(root): %w", err)
	}
	// Resolve symlinks where possible so boundary checks compare real paths.
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateRelPath resolves relPath against absRoot and returns an absolute path
// inside the sandbox. It rejects absolute inputs, parent traversal, symlink
// escapes and anything under .git/ or .agent/.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", PathError{Code: CodeOutsideRoot, Message: "absolute paths are not allowed"}
	}
	candidate := filepath.Join(absRoot, filepath.Clean(relPath))

	// Resolve the whole candidate if it exists, otherwise its parent, so a
	// symlinked directory cannot smuggle a new file outside the root.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(parent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", PathError{Code: CodeOutsideRoot, Message: "requested path resolves outside the export root"}
	}

	relSlash := filepath.ToSlash(rel)
	if underDir(relSlash, ".git") || underDir(relSlash, ".agent") {
		return "", PathError{Code: CodeDeniedRead, Message: "paths under .git/ or .agent/ are not allowed"}
	}
	return candidate, nil
}

// ValidateWritePath is ValidateRelPath for a file about to be written: the
// name must be non-empty and may not be a module file or live in .git/ or .agent/.
func ValidateWritePath(absRoot, relPath string) (string, error) {
	cleaned := filepath.Clean(relPath)
	if strings.TrimSpace(relPath) == "" || cleaned == "." {
		return "", PathError{Code: CodeEmptyName, Message: "a file name is required"}
	}
	abs, err := ValidateRelPath(absRoot, relPath)
	if err != nil {
		var pe PathError
		if errors.As(err, &pe) && pe.Code == CodeDeniedRead {
			return "", PathError{Code: CodeDeniedWrite, Message: "writes under .git/ or .agent/ are not allowed"}
		}
		return "", err
	}
	switch filepath.Base(abs) {
	case "go.mod", "go.sum":
		return "", PathError{Code: CodeDeniedWrite, Message: "module files are not writable"}
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return "", PathError{Code: CodeNotAFile, Message: "path is a directory"}
	}
	return abs, nil
}

func underDir(relSlash, dir string) bool {
	return relSlash == dir || strings.HasPrefix(relSlash, dir+"/")
}
