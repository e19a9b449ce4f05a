// Package devicectl drives the pen's screen and torch through the vendor
// hal-screen and led_utils tools.
package devicectl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

const (
	MinBrightness     = 0
	MaxBrightness     = 100
	DefaultBrightness = 50
)

var (
	// ErrInvalidBrightness is returned for brightness outside 0-100.
	ErrInvalidBrightness = errors.New("brightness must be between 0 and 100")
	// ErrInvalidTimeout is returned for a label not in ScreenTimeouts.
	ErrInvalidTimeout = errors.New("unknown screen timeout")
)

// ScreenTimeout is one selectable screen-on time.
type ScreenTimeout struct {
	Label   string
	Seconds int
}

// ScreenTimeouts are the screen-on times the firmware accepts, shortest
// first. "unlimited" is the largest int32.
var ScreenTimeouts = []ScreenTimeout{
	{"30s", 30},
	{"30m", 1800},
	{"1h", 3600},
	{"2h", 7200},
	{"3h", 10800},
	{"unlimited", 2147483647},
}

const defaultTimeout = 2 // 1h

// LookupTimeout finds a timeout by label, case-insensitively.
func LookupTimeout(label string) (ScreenTimeout, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, t := range ScreenTimeouts {
		if t.Label == label {
			return t, true
		}
	}
	return ScreenTimeout{}, false
}

// Controller applies screen and torch settings. State only changes after
// the command succeeded.
type Controller struct {
	sh  shell.Shell
	log *zap.Logger

	mu         sync.Mutex
	brightness int
	timeout    ScreenTimeout
	torch      bool
}

func NewController(sh shell.Shell) *Controller {
	return &Controller{
		sh:         sh,
		log:        logging.Named("devicectl"),
		brightness: DefaultBrightness,
		timeout:    ScreenTimeouts[defaultTimeout],
	}
}

// State returns the last applied settings.
func (c *Controller) State() types.DeviceControls {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.DeviceControls{
		Brightness:    c.brightness,
		ScreenTimeout: c.timeout.Label,
		TimeoutSec:    c.timeout.Seconds,
		Torch:         c.torch,
	}
}

// SetBrightness sets the backlight level in percent.
func (c *Controller) SetBrightness(ctx context.Context, level int) (types.DeviceControls, error) {
	if level < MinBrightness || level > MaxBrightness {
		return c.State(), fmt.Errorf("%w: %d", ErrInvalidBrightness, level)
	}
	if err := c.run(ctx, fmt.Sprintf("hal-screen set %d", level)); err != nil {
		return c.State(), err
	}
	c.mu.Lock()
	c.brightness = level
	c.mu.Unlock()
	return c.State(), nil
}

// SetScreenTimeout sets how long the screen stays on, by table label.
func (c *Controller) SetScreenTimeout(ctx context.Context, label string) (types.DeviceControls, error) {
	t, ok := LookupTimeout(label)
	if !ok {
		return c.State(), fmt.Errorf("%w: %q", ErrInvalidTimeout, label)
	}
	if err := c.run(ctx, fmt.Sprintf("hal-screen bright_time %d", t.Seconds)); err != nil {
		return c.State(), err
	}
	c.mu.Lock()
	c.timeout = t
	c.mu.Unlock()
	return c.State(), nil
}

// SetTorch switches the torch LED.
func (c *Controller) SetTorch(ctx context.Context, on bool) (types.DeviceControls, error) {
	arg := 0
	if on {
		arg = 1
	}
	if err := c.run(ctx, fmt.Sprintf("led_utils %d", arg)); err != nil {
		return c.State(), err
	}
	c.mu.Lock()
	c.torch = on
	c.mu.Unlock()
	return c.State(), nil
}

// ToggleTorch flips the torch from its last known state.
func (c *Controller) ToggleTorch(ctx context.Context) (types.DeviceControls, error) {
	return c.SetTorch(ctx, !c.State().Torch)
}

func (c *Controller) run(ctx context.Context, cmd string) error {
	if _, err := c.sh.Exec(ctx, cmd); err != nil {
		c.log.Warn("device control failed", zap.String("command", cmd), zap.Error(err))
		return fmt.Errorf("%s: %w", cmd, err)
	}
	c.log.Debug("device control applied", zap.String("command", cmd))
	return nil
}
