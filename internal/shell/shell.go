// Package shell defines the Shell capability every pentools component runs
// system commands through, plus a local implementation backed by /bin/sh.
package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotInitialized is returned by Exec before Initialize succeeded.
var ErrNotInitialized = errors.New("shell not initialized")

// Shell runs POSIX shell command lines and returns their standard output.
type Shell interface {
	Initialize(ctx context.Context) error
	Exec(ctx context.Context, command string) (string, error)
}

// ExecError is returned when a command exits non-zero or times out.
type ExecError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExecError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(e.Stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("exit status %d", e.ExitCode)
}

// ExitCode extracts the exit code from an Exec error, or -1 when err did not
// come from a finished command.
func ExitCode(err error) int {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.ExitCode
	}
	return -1
}

// Quote single-quotes s for safe use as one shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// InDir prefixes command with a cd into dir, so every exec observes the
// caller's working directory even though each runs in a fresh shell.
func InDir(dir, command string) string {
	if dir == "" {
		return command
	}
	return "cd " + Quote(dir) + " && " + command
}
