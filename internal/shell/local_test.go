package shell

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLocal(t *testing.T, timeout time.Duration) *Local {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	l := NewLocal("/bin/sh", timeout)
	if err := l.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	return l
}

func TestLocal_ExecBeforeInitialize(t *testing.T) {
	l := NewLocal("/bin/sh", 0)
	_, err := l.Exec(context.Background(), "echo hi")
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestLocal_InitializeMissingShell(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "nope"), 0)
	if err := l.Initialize(context.Background()); err == nil {
		t.Fatal("expected error for missing interpreter")
	}
}

func TestLocal_Exec(t *testing.T) {
	l := newTestLocal(t, 0)
	out, err := l.Exec(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if out != "hello\n" {
		t.Errorf("expected %q, got %q", "hello\n", out)
	}
}

func TestLocal_ExecFailure(t *testing.T) {
	l := newTestLocal(t, 0)
	_, err := l.Exec(context.Background(), "echo bad >&2; exit 3")

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %T: %v", err, err)
	}
	if execErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", execErr.ExitCode)
	}
	if execErr.Error() != "bad" {
		t.Errorf("expected message %q, got %q", "bad", execErr.Error())
	}
}

func TestLocal_ExecInDir(t *testing.T) {
	l := newTestLocal(t, 0)
	dir := t.TempDir()
	out, err := l.Exec(context.Background(), InDir(dir, "pwd"))
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(out))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("expected cwd %s, got %s", want, got)
	}
}

func TestLocal_ExecTimeout(t *testing.T) {
	l := newTestLocal(t, 100*time.Millisecond)
	start := time.Now()
	_, err := l.Exec(context.Background(), "sleep 5")

	if time.Since(start) > 3*time.Second {
		t.Fatal("timeout did not kill the command")
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %T: %v", err, err)
	}
	if execErr.ExitCode != 124 {
		t.Errorf("expected exit code 124, got %d", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Error(), "timed out") {
		t.Errorf("expected timeout message, got %q", execErr.Error())
	}
}
