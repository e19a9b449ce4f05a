package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/penosext/pentools/internal/listing"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

// builtin is a command handled without delegating the raw input to the
// shell. run reports whether the session should end.
type builtin struct {
	needsShell bool
	run        func(ctx context.Context, t *Terminal, s *session, name string, args []string) bool
}

var builtins = map[string]builtin{
	"help":    {run: runHelp},
	"clear":   {run: runClear},
	"echo":    {run: runEcho},
	"pwd":     {run: runPwd},
	"cd":      {needsShell: true, run: runCd},
	"history": {run: runHistory},
	"exit":    {run: runExit},
	"reset":   {run: runReset},
	"test":    {needsShell: true, run: runTest},
	"vi":      {run: runEditor},
	"vim":     {run: runEditor},
	"nano":    {run: runEditor},
	"ed":      {run: runEditor},
	"passwd":  {needsShell: true, run: runPasswd},
}

// IsBuiltin reports whether name (case-insensitive) is a built-in command.
func IsBuiltin(name string) bool {
	_, ok := builtins[strings.ToLower(name)]
	return ok
}

const helpText = `Built-in commands:
  help            show this help
  clear           clear the terminal
  echo <text>     print text
  pwd             print the current directory
  cd [dir]        change directory (~ for home)
  history         show command history
  exit            leave the terminal
  reset           reset the terminal and re-initialize the shell
  test            run the shell self-test
  vi <file>       edit a text file (also vim, nano, ed)
  passwd [user]   change a password interactively

Anything else runs in the device shell, for example:
  ls -la, cat <file>, mkdir <dir>, rm <file>, touch <file>
  df -h, free -m, ps, uname -a, date, mount
  ping <host>, wget <url>
  miniapp_cli install <file.amr>

Enabled toolshell scripts run by name.
Password input is masked and never stored in history.`

func runHelp(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	t.emit(s, types.LineOutput, helpText)
	status := "shell not initialized"
	if t.Initialized() {
		status = "shell ready"
	}
	t.emit(s, types.LineSystem, "status: "+status)
	return false
}

func runClear(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	t.mu.Lock()
	t.lines.clear()
	t.passwd.reset()
	t.mu.Unlock()
	s.lines = nil
	t.emit(s, types.LineSystem, "terminal cleared")
	return false
}

func runEcho(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	t.emit(s, types.LineOutput, strings.Join(args, " "))
	return false
}

func runPwd(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	t.emit(s, types.LineOutput, t.Cwd())
	return false
}

func runCd(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	target := "~"
	if len(args) > 0 {
		target = args[0]
	}

	var command string
	switch {
	case target == "~":
		command = "cd ~ && pwd"
	case strings.HasPrefix(target, "~/"):
		command = "cd ~/" + shell.Quote(target[2:]) + " && pwd"
	case strings.HasPrefix(target, "/"):
		command = "cd " + shell.Quote(target) + " && pwd"
	default:
		command = shell.InDir(t.Cwd(), "cd "+shell.Quote(target)+" && pwd")
	}

	out, err := t.sh.Exec(ctx, command)
	if err != nil {
		t.renderError(s, "cd: ", err)
		return false
	}
	dir := strings.TrimSpace(out)
	if dir == "" {
		t.emit(s, types.LineError, fmt.Sprintf("cd: cannot change to %q", target))
		return false
	}
	t.setCwd(dir)
	t.emit(s, types.LineOutput, dir)
	return false
}

func runHistory(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	entries := t.History()
	if len(entries) == 0 {
		t.emit(s, types.LineOutput, "history is empty")
		return false
	}
	var b strings.Builder
	b.WriteString("command history:")
	for i, cmd := range entries {
		fmt.Fprintf(&b, "\n%d. %s", i+1, cmd)
	}
	t.emit(s, types.LineOutput, b.String())
	return false
}

func runExit(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	t.emit(s, types.LineSystem, "session closed")
	return true
}

func runReset(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	t.mu.Lock()
	t.lines.clear()
	t.history.Clear()
	t.passwd.reset()
	t.cwd = "/"
	t.mu.Unlock()
	s.lines = nil
	t.emit(s, types.LineSystem, "terminal reset")
	if err := t.init(ctx, s); err != nil {
		t.log.Warn("reset: shell re-initialization failed", zap.Error(err))
	}
	return false
}

// selfTests are read-only probes run by the test built-in.
var selfTests = []struct {
	desc    string
	command string
}{
	{"echo", `echo "shell ok"`},
	{"list current directory", "ls"},
	{"current directory", "pwd"},
	{"current user", "whoami"},
	{"kernel", "uname -r"},
	{"date", "date"},
}

func runTest(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	t.emit(s, types.LineSystem, "running shell self-test...")
	failed := 0
	for _, st := range selfTests {
		out, err := t.sh.Exec(ctx, shell.InDir(t.Cwd(), st.command))
		if err != nil {
			failed++
			t.emit(s, types.LineError, fmt.Sprintf("%s failed: %v", st.desc, err))
			continue
		}
		t.emit(s, types.LineOutput, fmt.Sprintf("%s: %s", st.desc, strings.TrimSpace(out)))
	}
	t.emit(s, types.LineSystem, fmt.Sprintf("self-test finished, %d/%d passed", len(selfTests)-failed, len(selfTests)))
	return false
}

func runEditor(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	if len(args) == 0 {
		t.emit(s, types.LineError, fmt.Sprintf("usage: %s <file>", name))
		return false
	}
	if name == "nano" || name == "ed" {
		t.emit(s, types.LineSystem, fmt.Sprintf("%s is handled by the built-in editor", name))
	}

	cwd := t.Cwd()
	path := listing.JoinPath(cwd, args[0])
	t.emit(s, types.LineSystem, "opening "+path)
	if t.opts.Navigator == nil {
		t.emit(s, types.LineError, "no editor available")
		return false
	}
	if err := t.opts.Navigator.OpenEditor(ctx, path, cwd); err != nil {
		t.emit(s, types.LineError, "failed to open editor: "+err.Error())
	}
	return false
}
