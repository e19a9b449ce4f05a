package terminal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/penosext/pentools/internal/shell/shelltest"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeNavigator struct {
	path, returnDir string
}

func (n *fakeNavigator) OpenEditor(ctx context.Context, path, returnDir string) error {
	n.path, n.returnDir = path, returnDir
	return nil
}

type fakeChanger struct {
	calls []string
	err   error
}

func (c *fakeChanger) Change(ctx context.Context, user, password string, report func(types.LineType, string)) error {
	c.calls = append(c.calls, user+":"+password)
	report(types.LineSystem, "hash generated")
	return c.err
}

type mapResolver map[string]string

func (m mapResolver) Resolve(ctx context.Context, name string) (string, bool) {
	p, ok := m[name]
	return p, ok
}

func newTestTerminal(t *testing.T, opts Options) (*Terminal, *shelltest.Fake) {
	t.Helper()
	fake := shelltest.New().On("pwd", "/\n")
	term := New(fake, opts)
	if err := term.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	return term, fake
}

func lastLine(lines []types.TerminalLine) types.TerminalLine {
	return lines[len(lines)-1]
}

func TestSubmit_Empty(t *testing.T) {
	term, _ := newTestTerminal(t, Options{})
	before := len(term.Lines())
	if _, err := term.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if len(term.Lines()) != before {
		t.Error("empty input should not append lines")
	}
}

func TestSubmit_Builtins(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	ctx := context.Background()

	res, err := term.Submit(ctx, "ECHO hello   world")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if !res.Handled {
		t.Error("echo should be handled as a built-in")
	}
	if len(res.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(res.Lines), res.Lines)
	}
	if res.Lines[0].Type != types.LineCommand || res.Lines[0].Content != "/ $ ECHO hello   world" {
		t.Errorf("unexpected command line: %+v", res.Lines[0])
	}
	if res.Lines[1].Content != "hello world" {
		t.Errorf("unexpected echo output: %q", res.Lines[1].Content)
	}

	res, _ = term.Submit(ctx, "pwd")
	if lastLine(res.Lines).Content != "/" {
		t.Errorf("pwd = %q", lastLine(res.Lines).Content)
	}

	calls := len(fake.Calls())
	term.Submit(ctx, "help")
	if len(fake.Calls()) != calls {
		t.Error("help should not call the shell")
	}

	res, _ = term.Submit(ctx, "exit")
	if !res.Exit {
		t.Error("exit should set Exit")
	}
}

func TestSubmit_ShellCommand(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	fake.On("cd '/' && ls", "bin\netc\n")
	fake.On("cd '/' && true", "")

	res, err := term.Submit(context.Background(), "ls")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if res.Handled {
		t.Error("ls should be delegated to the shell")
	}
	out := lastLine(res.Lines)
	if out.Type != types.LineOutput || out.Content != "bin\netc" {
		t.Errorf("unexpected output line: %+v", out)
	}

	res, _ = term.Submit(context.Background(), "true")
	if lastLine(res.Lines).Content != "(no output)" {
		t.Errorf("expected (no output), got %q", lastLine(res.Lines).Content)
	}
}

func TestSubmit_ErrorHints(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	fake.OnError("cd '/' && cat /etc/shadow", "cat: /etc/shadow: Permission denied", 1)

	res, err := term.Submit(context.Background(), "cat /etc/shadow")
	if err != nil {
		t.Fatalf("exec failures must not be returned as errors: %v", err)
	}
	if len(res.Lines) != 3 {
		t.Fatalf("expected command, error and hint lines, got %+v", res.Lines)
	}
	if res.Lines[1].Type != types.LineError || res.Lines[1].Content != "cat: /etc/shadow: Permission denied" {
		t.Errorf("unexpected error line: %+v", res.Lines[1])
	}
	if res.Lines[2].Type != types.LineSystem || !strings.Contains(res.Lines[2].Content, "permission") {
		t.Errorf("unexpected hint line: %+v", res.Lines[2])
	}
}

func TestHints(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{"sh: foo: not found", 1},
		{"Permission denied", 1},
		{"command timed out after 1m0s", 1},
		{"connection timeout", 1},
		{"no such file or directory", 0},
	}
	for _, tt := range tests {
		if got := len(Hints(tt.msg)); got != tt.want {
			t.Errorf("Hints(%q) returned %d hints, want %d", tt.msg, got, tt.want)
		}
	}
}

func TestSubmit_Busy(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	fake.Gate = make(chan struct{})
	fake.Started = make(chan string, 1)

	done := make(chan error, 1)
	go func() {
		_, err := term.Submit(context.Background(), "sleep 10")
		done <- err
	}()
	<-fake.Started

	before := len(term.Lines())
	res, err := term.Submit(context.Background(), "ls")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(res.Lines) != 1 || res.Lines[0].Type != types.LineSystem {
		t.Errorf("expected one system warning line, got %+v", res.Lines)
	}
	if len(term.Lines()) != before+1 {
		t.Errorf("expected exactly one new line, got %d", len(term.Lines())-before)
	}
	if fake.Called("ls") {
		t.Error("busy submission must not reach the shell")
	}
	for _, h := range term.History() {
		if h == "ls" {
			t.Error("busy submission must not enter history")
		}
	}

	close(fake.Gate)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Submit() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never finished")
	}
	if term.Busy() {
		t.Error("terminal should be idle after the exec settles")
	}
}

func TestSubmit_HistoryDedupe(t *testing.T) {
	term, _ := newTestTerminal(t, Options{MaxHistory: 3})
	ctx := context.Background()

	for _, in := range []string{"echo a", "echo a", "echo b", "echo a"} {
		term.Submit(ctx, in)
	}
	got := term.History()
	want := []string{"echo a", "echo b", "echo a"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("history = %v, want %v", got, want)
	}

	term.Submit(ctx, "echo c")
	got = term.History()
	if len(got) != 3 || got[0] != "echo b" || got[2] != "echo c" {
		t.Errorf("expected oldest entry evicted, got %v", got)
	}
}

func TestSubmit_LineCap(t *testing.T) {
	term, _ := newTestTerminal(t, Options{MaxLines: 4})
	for i := 0; i < 5; i++ {
		term.Submit(context.Background(), "echo x")
	}
	lines := term.Lines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 retained lines, got %d", len(lines))
	}
	if lastLine(lines).Content != "x" {
		t.Errorf("newest line should be retained, got %+v", lastLine(lines))
	}
}

func TestSubmit_Passwd(t *testing.T) {
	changer := &fakeChanger{}
	term, fake := newTestTerminal(t, Options{Passwd: changer})
	fake.On("whoami", "root\n")
	ctx := context.Background()

	term.Submit(ctx, "passwd")
	if !term.PasswdActive() {
		t.Fatal("passwd should enter the interactive flow")
	}

	term.Submit(ctx, "oldpass")
	res, _ := term.Submit(ctx, "abc")
	if res.Lines[0].Type != types.LinePassword || res.Lines[0].Content != "***" {
		t.Errorf("input should be echoed masked, got %+v", res.Lines[0])
	}
	if res.Lines[1].Type != types.LineError {
		t.Errorf("expected too-short error, got %+v", res.Lines[1])
	}

	term.Submit(ctx, "abcdefg")
	res, _ = term.Submit(ctx, "xyzxyzx")
	if res.Lines[1].Type != types.LineError || !strings.Contains(res.Lines[1].Content, "match") {
		t.Errorf("expected mismatch error, got %+v", res.Lines)
	}
	if !term.PasswdActive() {
		t.Fatal("mismatch should stay in the flow")
	}
	if fake.Called("xyzxyzx") || fake.Called("abc") {
		t.Error("password input must never reach the shell")
	}

	term.Submit(ctx, "secret1")
	term.Submit(ctx, "secret1")
	if term.PasswdActive() {
		t.Error("flow should end after a successful change")
	}
	if len(changer.calls) != 1 || changer.calls[0] != "root:secret1" {
		t.Errorf("unexpected changer calls: %v", changer.calls)
	}

	hist := term.History()
	if len(hist) != 1 || hist[0] != "passwd" {
		t.Errorf("password input must not enter history, got %v", hist)
	}
}

func TestSubmit_PasswdOtherUserDenied(t *testing.T) {
	term, fake := newTestTerminal(t, Options{Passwd: &fakeChanger{}})
	fake.On("whoami", "pen\n")

	res, _ := term.Submit(context.Background(), "passwd root")
	if term.PasswdActive() {
		t.Error("non-root user must not change another user's password")
	}
	if lastLine(res.Lines).Type != types.LineError {
		t.Errorf("expected error line, got %+v", lastLine(res.Lines))
	}
}

func TestCancel(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	fake.On("whoami", "root\n")
	ctx := context.Background()

	if term.Cancel() {
		t.Error("Cancel without an active flow should report false")
	}
	term.Submit(ctx, "passwd")
	if !term.Cancel() {
		t.Error("Cancel should leave the flow")
	}
	res, _ := term.Submit(ctx, "echo back")
	if !res.Handled || lastLine(res.Lines).Content != "back" {
		t.Errorf("input after cancel should dispatch normally, got %+v", res.Lines)
	}
}

func TestSubmit_Uninitialized(t *testing.T) {
	fake := shelltest.New()
	term := New(fake, Options{})
	ctx := context.Background()

	res, err := term.Submit(ctx, "echo hi")
	if err != nil || lastLine(res.Lines).Content != "hi" {
		t.Errorf("echo should work without a shell, got %+v, %v", res, err)
	}

	for _, in := range []string{"ls", "cd /tmp"} {
		res, _ = term.Submit(ctx, in)
		last := lastLine(res.Lines)
		if last.Type != types.LineError || last.Content != "shell not initialized" {
			t.Errorf("%s: expected not-initialized error, got %+v", in, last)
		}
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("no exec expected, got %v", fake.Calls())
	}
}

func TestInit_Retry(t *testing.T) {
	fake := shelltest.New().On("pwd", "/userdisk\n")
	fake.InitErr = errors.New("bridge unavailable")
	term := New(fake, Options{})

	if err := term.Init(context.Background()); err == nil {
		t.Fatal("expected init failure")
	}
	if term.Initialized() {
		t.Fatal("terminal should not be initialized")
	}

	fake.InitErr = nil
	if err := term.Init(context.Background()); err != nil {
		t.Fatalf("retry Init() error: %v", err)
	}
	if term.Cwd() != "/userdisk" {
		t.Errorf("cwd = %q, want /userdisk", term.Cwd())
	}
}

func TestSubmit_Cd(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	fake.On("cd '/userdisk' && pwd", "/userdisk\n")
	fake.On("cd '/userdisk' && cd 'paper' && pwd", "/userdisk/paper\n")
	fake.OnError("cd '/userdisk/paper' && cd 'nope' && pwd", "sh: cd: can't cd to nope: No such file or directory", 2)
	fake.On("cd '/userdisk/paper' && ls", "a.txt\n")
	ctx := context.Background()

	term.Submit(ctx, "cd /userdisk")
	term.Submit(ctx, "cd paper")
	if term.Cwd() != "/userdisk/paper" {
		t.Fatalf("cwd = %q", term.Cwd())
	}

	res, _ := term.Submit(ctx, "cd nope")
	if term.Cwd() != "/userdisk/paper" {
		t.Errorf("failed cd must keep cwd, got %q", term.Cwd())
	}
	if res.Lines[1].Type != types.LineError || !strings.HasPrefix(res.Lines[1].Content, "cd: ") {
		t.Errorf("unexpected cd error line: %+v", res.Lines[1])
	}

	res, _ = term.Submit(ctx, "ls")
	if lastLine(res.Lines).Content != "a.txt" {
		t.Errorf("ls should run in the new cwd, got %+v", res.Lines)
	}
}

func TestSubmit_Editor(t *testing.T) {
	nav := &fakeNavigator{}
	term, _ := newTestTerminal(t, Options{Navigator: nav})
	ctx := context.Background()

	res, _ := term.Submit(ctx, "vi")
	if lastLine(res.Lines).Type != types.LineError {
		t.Error("vi without a file should print usage")
	}

	term.Submit(ctx, "vim notes.txt")
	if nav.path != "/notes.txt" || nav.returnDir != "/" {
		t.Errorf("unexpected navigation: %+v", nav)
	}
	term.Submit(ctx, "nano /etc/hosts")
	if nav.path != "/etc/hosts" {
		t.Errorf("absolute path not kept: %q", nav.path)
	}
}

func TestSubmit_Script(t *testing.T) {
	term, fake := newTestTerminal(t, Options{
		Scripts: mapResolver{"hello": "/userdisk/paper/toolshell/hello.sh"},
	})
	want := "cd '/' && sh '/userdisk/paper/toolshell/hello.sh' 'world'"
	fake.On(want, "hello world\n")

	res, _ := term.Submit(context.Background(), "hello world")
	if lastLine(res.Lines).Content != "hello world" {
		t.Errorf("script output = %+v", res.Lines)
	}
}

func TestSubmit_ClearAndReset(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	ctx := context.Background()
	term.Submit(ctx, "echo one")

	term.Submit(ctx, "clear")
	lines := term.Lines()
	if len(lines) != 1 || lines[0].Type != types.LineSystem {
		t.Errorf("clear should leave one system line, got %+v", lines)
	}
	if len(term.History()) != 2 {
		t.Errorf("clear keeps history, got %v", term.History())
	}

	fake.On("cd '/userdisk' && pwd", "/userdisk\n")
	term.Submit(ctx, "cd /userdisk")
	term.Submit(ctx, "reset")
	if len(term.History()) != 0 {
		t.Errorf("reset should clear history, got %v", term.History())
	}
	if term.Cwd() != "/" {
		t.Errorf("reset should return to /, got %q", term.Cwd())
	}
	if !term.Initialized() {
		t.Error("reset should re-initialize the shell")
	}
}

func TestSubscribe(t *testing.T) {
	term, _ := newTestTerminal(t, Options{})
	ch := term.Subscribe()
	defer term.Unsubscribe(ch)

	term.Submit(context.Background(), "echo streamed")
	var got []string
	for i := 0; i < 2; i++ {
		select {
		case line := <-ch:
			got = append(got, line.Content)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for streamed line")
		}
	}
	if got[1] != "streamed" {
		t.Errorf("unexpected stream: %v", got)
	}
}

func TestEmit_OrderMatchesStream(t *testing.T) {
	var clock atomic.Int64
	term := New(shelltest.New(), Options{
		MaxLines: 1000,
		Now:      func() time.Time { return time.UnixMilli(clock.Add(1)) },
	})
	ch := term.Subscribe()
	defer term.Unsubscribe(ch)

	const workers, perWorker = 4, 10
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				term.emit(nil, types.LineSystem, "busy")
			}
		}()
	}
	wg.Wait()

	lines := term.Lines()
	if len(lines) != workers*perWorker {
		t.Fatalf("expected %d lines, got %d", workers*perWorker, len(lines))
	}
	for i, want := range lines {
		got := <-ch
		if got.ID != want.ID {
			t.Fatalf("stream line %d = %s, scrollback has %s", i, got.ID, want.ID)
		}
		if i > 0 && want.Timestamp < lines[i-1].Timestamp {
			t.Errorf("timestamp went backwards at line %d", i)
		}
	}
}

func TestSubmit_ResetInitFailureLogged(t *testing.T) {
	term, fake := newTestTerminal(t, Options{})
	core, logs := observer.New(zapcore.WarnLevel)
	term.log = zap.New(core)

	fake.InitErr = errors.New("bridge unavailable")
	term.Submit(context.Background(), "reset")

	if term.Initialized() {
		t.Error("failed reset should leave the shell uninitialized")
	}
	if lastLine(term.Lines()).Type != types.LineError {
		t.Errorf("expected error line, got %+v", lastLine(term.Lines()))
	}
	entries := logs.FilterMessage("reset: shell re-initialization failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one reset warning, got %d", len(entries))
	}
	if err, _ := entries[0].ContextMap()["error"].(string); err != "bridge unavailable" {
		t.Errorf("logged error = %v", entries[0].ContextMap()["error"])
	}
}
