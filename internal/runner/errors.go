package runner

import (
	"errors"
	"fmt"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

var (
	// ErrRunTimeout is returned when a thread stays busy longer than the poll bound.
	ErrRunTimeout = errors.New("run timeout")
	// ErrRemoteRunFailed matches every *RunFailedError.
	ErrRemoteRunFailed = errors.New("remote run failed")
	// ErrTooManyToolRounds is returned when a turn keeps requesting tools past the configured bound.
	ErrTooManyToolRounds = errors.New("too many tool rounds")
)

// RunFailedError reports a run that ended in failed, cancelled, expired or incomplete.
type RunFailedError struct {
	RunID   string
	Status  remote.RunStatus
	Message string
}

func (e *RunFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
	}
	return fmt.Sprintf("run %s ended with status %s: %s", e.RunID, e.Status, e.Message)
}

func (e *RunFailedError) Is(target error) bool { return target == ErrRemoteRunFailed }
