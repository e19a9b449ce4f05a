package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

const minPasswordLen = 6

// passwdStep is the position in the interactive passwd flow.
type passwdStep int

const (
	passwdIdle passwdStep = iota
	passwdCurrent
	passwdNew
	passwdConfirm
)

type passwdFlow struct {
	step        passwdStep
	user        string
	newPassword string
}

func (p *passwdFlow) active() bool {
	return p.step != passwdIdle
}

func (p *passwdFlow) reset() {
	*p = passwdFlow{}
}

func runPasswd(ctx context.Context, t *Terminal, s *session, name string, args []string) bool {
	user := "root"
	if len(args) > 0 {
		user = args[0]
	}

	if out, err := t.sh.Exec(ctx, "whoami"); err == nil {
		current := strings.TrimSpace(out)
		if current != "" && current != "root" && current != user {
			t.emit(s, types.LineError, "passwd: only root can change another user's password")
			return false
		}
	}

	t.mu.Lock()
	t.passwd = passwdFlow{step: passwdCurrent, user: user}
	t.mu.Unlock()

	t.emit(s, types.LinePassword, "Changing password for "+user)
	t.emit(s, types.LinePassword, "Current password:")
	return false
}

// passwdInput feeds one masked input into the active passwd flow.
func (t *Terminal) passwdInput(ctx context.Context, s *session, input string) {
	t.emit(s, types.LinePassword, strings.Repeat("*", len(input)))

	t.mu.Lock()
	step, user, pending := t.passwd.step, t.passwd.user, t.passwd.newPassword
	t.mu.Unlock()

	switch step {
	case passwdCurrent:
		t.setPasswdStep(passwdNew, "")
		t.emit(s, types.LinePassword, "New password:")

	case passwdNew:
		if len(input) < minPasswordLen {
			t.emit(s, types.LineError, fmt.Sprintf("password too short, must be at least %d characters", minPasswordLen))
			t.emit(s, types.LinePassword, "New password:")
			return
		}
		t.setPasswdStep(passwdConfirm, input)
		t.emit(s, types.LinePassword, "Retype new password:")

	case passwdConfirm:
		if input != pending {
			t.setPasswdStep(passwdNew, "")
			t.emit(s, types.LineError, "passwords do not match")
			t.emit(s, types.LinePassword, "New password:")
			return
		}
		t.mu.Lock()
		t.passwd.reset()
		t.mu.Unlock()
		t.changePassword(ctx, s, user, input)
	}
}

func (t *Terminal) setPasswdStep(step passwdStep, newPassword string) {
	t.mu.Lock()
	t.passwd.step = step
	t.passwd.newPassword = newPassword
	t.mu.Unlock()
}

func (t *Terminal) changePassword(ctx context.Context, s *session, user, password string) {
	if t.opts.Passwd == nil {
		t.emit(s, types.LineError, "password change is not available")
		return
	}
	t.emit(s, types.LinePassword, "updating password...")
	report := func(typ types.LineType, msg string) {
		t.emit(s, typ, msg)
	}
	if err := t.opts.Passwd.Change(ctx, user, password, report); err != nil {
		t.log.Warn("password change failed", zap.String("user", user), zap.Error(err))
		t.emit(s, types.LineError, "password change failed: "+err.Error())
		t.emit(s, types.LineSystem, "if the root filesystem is read-only the password may live on a separate writable partition")
		return
	}
	t.emit(s, types.LinePassword, "passwd: password updated successfully")
}
