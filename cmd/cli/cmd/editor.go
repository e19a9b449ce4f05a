package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/penosext/pentools/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// ptyEditor opens files in $EDITOR (vi by default) on a PTY bridged to the
// user's terminal. It implements terminal.Navigator.
type ptyEditor struct {
	bin string
	in  *input
	out *os.File
}

func newPTYEditor(in *input, out *os.File) *ptyEditor {
	bin := os.Getenv("EDITOR")
	if bin == "" {
		bin = "vi"
	}
	return &ptyEditor{bin: bin, in: in, out: out}
}

func (e *ptyEditor) OpenEditor(ctx context.Context, path, returnDir string) error {
	if !e.in.isTerminal() {
		return fmt.Errorf("editor needs an interactive terminal")
	}

	cmd := exec.CommandContext(ctx, e.bin, path)
	cmd.Dir = returnDir
	cmd.Env = append(os.Environ(), "TERM="+termName())

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start %s: %w", e.bin, err)
	}
	defer ptmx.Close()

	// Keep the PTY the same size as the user's terminal
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for range winch {
			if err := pty.InheritSize(e.in.file, ptmx); err != nil {
				logging.Debug("resize pty", zap.Error(err))
			}
		}
	}()
	winch <- syscall.SIGWINCH
	defer func() {
		signal.Stop(winch)
		close(winch)
	}()

	fd := int(e.in.file.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	done := make(chan struct{})
	go e.in.pipeTo(ptmx, done)

	// Editor output -> terminal; returns when the editor exits
	io.Copy(e.out, ptmx)
	close(done)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s exited: %w", e.bin, err)
	}
	return nil
}

func termName() string {
	if t := os.Getenv("TERM"); t != "" {
		return t
	}
	return "xterm-256color"
}
