// Package terminal implements the pentools command dispatcher: built-in
// commands, delegation to the shell, scrollback, history and the
// interactive passwd flow.
package terminal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/metrics"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput is returned for blank submissions.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy is returned while another submission is still running.
	ErrBusy = errors.New("a command is already running")
)

const (
	defaultMaxLines   = 500
	defaultMaxHistory = 100
)

// Navigator opens the text editor for path; returnDir is where the editor
// should come back to.
type Navigator interface {
	OpenEditor(ctx context.Context, path, returnDir string) error
}

// PasswordChanger performs the actual password update. report receives
// progress lines.
type PasswordChanger interface {
	Change(ctx context.Context, user, password string, report func(types.LineType, string)) error
}

// ScriptResolver maps an enabled toolshell script name to its path.
type ScriptResolver interface {
	Resolve(ctx context.Context, name string) (string, bool)
}

// Options configures a Terminal. Nil collaborators disable the features
// that need them.
type Options struct {
	MaxLines   int
	MaxHistory int
	Navigator  Navigator
	Passwd     PasswordChanger
	Scripts    ScriptResolver
	Now        func() time.Time
}

// Terminal is one terminal session. It is safe for concurrent use, but only
// one submission runs at a time.
type Terminal struct {
	sh   shell.Shell
	opts Options
	log  *zap.Logger

	// emitMu orders timestamping, the scrollback and the stream together.
	emitMu sync.Mutex

	mu          sync.Mutex
	busy        bool
	initialized bool
	cwd         string
	lines       lineLog
	history     *History
	passwd      passwdFlow

	subs *broadcaster
}

// New creates a Terminal around sh. Call Init before running shell commands.
func New(sh shell.Shell, opts Options) *Terminal {
	if opts.MaxLines <= 0 {
		opts.MaxLines = defaultMaxLines
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Terminal{
		sh:      sh,
		opts:    opts,
		log:     logging.Named("terminal"),
		cwd:     "/",
		lines:   lineLog{max: opts.MaxLines},
		history: NewHistory(opts.MaxHistory),
		subs:    newBroadcaster(),
	}
}

// session collects the lines appended by one call.
type session struct {
	lines []types.TerminalLine
}

// emit appends a line to the scrollback, the caller's session and the
// stream subscribers.
func (t *Terminal) emit(s *session, typ types.LineType, content string) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	line := types.TerminalLine{
		ID:        uuid.NewString(),
		Type:      typ,
		Content:   content,
		Timestamp: t.opts.Now().UnixMilli(),
	}
	t.mu.Lock()
	t.lines.append(line)
	t.mu.Unlock()
	if s != nil {
		s.lines = append(s.lines, line)
	}
	t.subs.publish(line)
}

func (t *Terminal) result(s *session, handled bool) *types.CommandResult {
	return &types.CommandResult{Handled: handled, Cwd: t.Cwd(), Lines: s.lines}
}

// Init initializes the shell and reads the starting directory. It may be
// retried after a failure.
func (t *Terminal) Init(ctx context.Context) error {
	if !t.acquire() {
		return ErrBusy
	}
	defer t.release()
	if err := t.init(ctx, &session{}); err != nil {
		t.log.Warn("shell initialization failed", zap.Error(err))
		return err
	}
	return nil
}

func (t *Terminal) init(ctx context.Context, s *session) error {
	t.emit(s, types.LineSystem, "initializing shell...")
	if err := t.sh.Initialize(ctx); err != nil {
		t.setInitialized(false)
		t.emit(s, types.LineError, "shell initialization failed: "+err.Error())
		return err
	}
	t.setInitialized(true)
	t.emit(s, types.LineSystem, "shell ready")

	if out, err := t.sh.Exec(ctx, "pwd"); err == nil && strings.TrimSpace(out) != "" {
		t.setCwd(strings.TrimSpace(out))
		t.emit(s, types.LineSystem, "current directory: "+t.Cwd())
	} else {
		t.emit(s, types.LineSystem, "current directory: / (default)")
	}
	return nil
}

// Submit dispatches one line of user input.
func (t *Terminal) Submit(ctx context.Context, input string) (*types.CommandResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		metrics.TerminalRejectedTotal.WithLabelValues("empty").Inc()
		return nil, ErrEmptyInput
	}

	s := &session{}
	if !t.acquire() {
		metrics.TerminalRejectedTotal.WithLabelValues("busy").Inc()
		t.emit(s, types.LineSystem, "a command is still running, please wait")
		return t.result(s, false), ErrBusy
	}
	defer t.release()

	if t.passwdActive() {
		t.passwdInput(ctx, s, input)
		return t.result(s, true), nil
	}

	t.emit(s, types.LineCommand, t.Cwd()+" $ "+input)
	t.mu.Lock()
	t.history.Add(input)
	t.mu.Unlock()

	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	if b, ok := builtins[name]; ok {
		metrics.BuiltinCommandsTotal.WithLabelValues(name).Inc()
		if b.needsShell && !t.Initialized() {
			t.emit(s, types.LineError, shell.ErrNotInitialized.Error())
			return t.result(s, true), nil
		}
		exit := b.run(ctx, t, s, name, args)
		res := t.result(s, true)
		res.Exit = exit
		return res, nil
	}

	if !t.Initialized() {
		t.emit(s, types.LineError, shell.ErrNotInitialized.Error())
		return t.result(s, false), nil
	}

	command := input
	if t.opts.Scripts != nil {
		if path, ok := t.opts.Scripts.Resolve(ctx, fields[0]); ok {
			command = scriptCommand(path, args)
		}
	}
	t.execute(ctx, s, command)
	return t.result(s, false), nil
}

func scriptCommand(path string, args []string) string {
	parts := []string{"sh", shell.Quote(path)}
	for _, a := range args {
		parts = append(parts, shell.Quote(a))
	}
	return strings.Join(parts, " ")
}

// execute runs command in the current directory and renders the outcome.
func (t *Terminal) execute(ctx context.Context, s *session, command string) {
	out, err := t.sh.Exec(ctx, shell.InDir(t.Cwd(), command))
	if err != nil {
		t.log.Debug("command failed", zap.String("command", command), zap.Error(err))
		t.renderError(s, "", err)
		return
	}
	out = strings.TrimRight(out, "\n")
	if strings.TrimSpace(out) == "" {
		t.emit(s, types.LineOutput, "(no output)")
		return
	}
	t.emit(s, types.LineOutput, out)
}

// renderError emits an error line and any matching hints.
func (t *Terminal) renderError(s *session, prefix string, err error) {
	msg := err.Error()
	t.emit(s, types.LineError, prefix+msg)
	for _, h := range Hints(msg) {
		t.emit(s, types.LineSystem, h)
	}
}

// Hints returns troubleshooting hints for an error message.
func Hints(msg string) []string {
	lower := strings.ToLower(msg)
	var hints []string
	if strings.Contains(lower, "permission denied") {
		hints = append(hints, "hint: permission denied, check file permissions or use a path under /userdisk")
	}
	if strings.Contains(lower, "not found") {
		hints = append(hints, "hint: command or file not found, check the name and the current directory")
	}
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") {
		hints = append(hints, "hint: the command took too long, try a lighter operation")
	}
	return hints
}

// Cancel leaves the passwd flow, if active.
func (t *Terminal) Cancel() bool {
	t.mu.Lock()
	active := t.passwd.active()
	t.passwd.reset()
	t.mu.Unlock()
	if active {
		t.emit(nil, types.LineSystem, "password change cancelled")
	}
	return active
}

// Lines returns a snapshot of the scrollback.
func (t *Terminal) Lines() []types.TerminalLine {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lines.snapshot()
}

// History returns a snapshot of the command history, oldest first.
func (t *Terminal) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Entries()
}

// HistoryPrev steps the history cursor back.
func (t *Terminal) HistoryPrev() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Prev()
}

// HistoryNext steps the history cursor forward.
func (t *Terminal) HistoryNext() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Next()
}

// Subscribe returns a channel receiving every appended line. Call
// Unsubscribe when done.
func (t *Terminal) Subscribe() chan types.TerminalLine {
	return t.subs.subscribe()
}

// Unsubscribe removes and closes a subscription.
func (t *Terminal) Unsubscribe(ch chan types.TerminalLine) {
	t.subs.unsubscribe(ch)
}

// Cwd returns the current working directory.
func (t *Terminal) Cwd() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cwd
}

// Busy reports whether a submission is running.
func (t *Terminal) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Initialized reports whether the shell is usable.
func (t *Terminal) Initialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized
}

// PasswdActive reports whether input is currently fed to the passwd flow.
func (t *Terminal) PasswdActive() bool {
	return t.passwdActive()
}

func (t *Terminal) passwdActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.passwd.active()
}

func (t *Terminal) acquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy {
		return false
	}
	t.busy = true
	return true
}

func (t *Terminal) release() {
	t.mu.Lock()
	t.busy = false
	t.mu.Unlock()
}

func (t *Terminal) setCwd(dir string) {
	t.mu.Lock()
	t.cwd = dir
	t.mu.Unlock()
}

func (t *Terminal) setInitialized(v bool) {
	t.mu.Lock()
	t.initialized = v
	t.mu.Unlock()
}
