package shell

import (
	"context"
	"time"

	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/metrics"
	"go.uber.org/zap"
)

// CommandLogger persists a record of each executed command.
type CommandLogger interface {
	LogCommand(ctx context.Context, command string, exitCode int, duration time.Duration, outputLen int) error
}

// Recorded wraps a Shell, timing every exec and writing it to a command log.
type Recorded struct {
	Shell
	log CommandLogger
}

// NewRecorded decorates sh. A nil log only records metrics.
func NewRecorded(sh Shell, log CommandLogger) *Recorded {
	return &Recorded{Shell: sh, log: log}
}

// Exec runs the command through the wrapped shell and records it. Commands
// run under a Sensitive context are recorded as RedactedCommand.
func (r *Recorded) Exec(ctx context.Context, command string) (string, error) {
	start := time.Now()
	out, err := r.Shell.Exec(ctx, command)
	metrics.ObserveExec(start, err)

	logged := command
	if IsSensitive(ctx) {
		logged = RedactedCommand
	}

	exitCode := 0
	if err != nil {
		exitCode = ExitCode(err)
		logging.Debug("shell: command failed",
			zap.String("command", logged),
			zap.Int("exit_code", exitCode),
			zap.Error(err))
	}

	if r.log != nil {
		if logErr := r.log.LogCommand(ctx, logged, exitCode, time.Since(start), len(out)); logErr != nil {
			logging.Warn("shell: failed to log command", zap.Error(logErr))
		}
	}
	return out, err
}
