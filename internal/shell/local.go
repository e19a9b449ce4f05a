package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Local runs commands with a local interpreter (`<path> -c <command>`).
// Executions are serialized, matching the one-at-a-time native bridge.
type Local struct {
	path    string
	timeout time.Duration
	dir     string

	mu          sync.Mutex
	initialized bool
}

// NewLocal creates a Local shell. A zero timeout disables the per-exec limit.
func NewLocal(path string, timeout time.Duration) *Local {
	if path == "" {
		path = "/bin/sh"
	}
	return &Local{path: path, timeout: timeout, dir: "/"}
}

// Initialize verifies the interpreter exists.
func (l *Local) Initialize(ctx context.Context) error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("shell %s: %w", l.path, err)
	}
	if info.IsDir() || info.Mode()&0111 == 0 {
		return fmt.Errorf("shell %s is not executable", l.path)
	}

	l.mu.Lock()
	l.initialized = true
	l.mu.Unlock()
	return nil
}

// Exec runs command and returns its stdout.
func (l *Local) Exec(ctx context.Context, command string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return "", ErrNotInitialized
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, l.path, "-c", command)
	cmd.Dir = l.dir

	// Run in its own process group so a timeout kills the whole pipeline.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.String(), &ExecError{
			Command:  command,
			ExitCode: 124,
			Stdout:   stdout.String(),
			Stderr:   fmt.Sprintf("command timed out after %s", l.timeout),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), &ExecError{
			Command:  command,
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}

	return "", fmt.Errorf("exec failed: %w", err)
}
