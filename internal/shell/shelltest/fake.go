// Package shelltest provides a scripted in-memory Shell for tests.
package shelltest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/penosext/pentools/internal/shell"
)

// Response is the scripted outcome of one command.
type Response struct {
	Out string
	Err error
}

// Fake is a Shell whose Exec results are looked up by exact command first,
// then by the longest registered prefix. Unknown commands succeed with no
// output.
type Fake struct {
	mu       sync.Mutex
	exact    map[string]Response
	prefixes map[string]Response
	calls    []string

	// InitErr is returned by Initialize when set.
	InitErr error
	// Gate, when non-nil, blocks every Exec until it is closed or receives.
	Gate chan struct{}
	// Started receives the command each time an Exec begins, if non-nil.
	Started chan string

	initialized bool
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		exact:    make(map[string]Response),
		prefixes: make(map[string]Response),
	}
}

// On scripts the response for an exact command line.
func (f *Fake) On(command, out string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact[command] = Response{Out: out}
	return f
}

// OnError scripts a failing command. The error is an *shell.ExecError.
func (f *Fake) OnError(command, stderr string, exitCode int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact[command] = Response{Err: &shell.ExecError{Command: command, ExitCode: exitCode, Stderr: stderr}}
	return f
}

// OnPrefix scripts the response for any command starting with prefix.
func (f *Fake) OnPrefix(prefix string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = resp
	return f
}

// Initialize marks the fake ready unless InitErr is set.
func (f *Fake) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitErr != nil {
		return f.InitErr
	}
	f.initialized = true
	return nil
}

// Exec records the command and returns its scripted response.
func (f *Fake) Exec(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	if !f.initialized {
		f.mu.Unlock()
		return "", shell.ErrNotInitialized
	}
	f.calls = append(f.calls, command)
	resp, ok := f.exact[command]
	if !ok {
		best := -1
		for prefix, r := range f.prefixes {
			if strings.HasPrefix(command, prefix) && len(prefix) > best {
				best = len(prefix)
				resp = r
			}
		}
	}
	gate, started := f.Gate, f.Started
	f.mu.Unlock()

	if started != nil {
		started <- command
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return resp.Out, resp.Err
}

// Calls returns the commands executed so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Called reports whether any executed command contains substr.
func (f *Fake) Called(substr string) bool {
	for _, c := range f.Calls() {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// Err builds a generic transport error for scripting.
func Err(msg string) error {
	return errors.New(msg)
}
