package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/penosext/pentools/internal/devicectl"
	"github.com/penosext/pentools/pkg/types"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Adjust screen brightness, screen-on time and the torch",
}

// controller is satisfied by the local controller adapter and the API client.
type controller interface {
	SetBrightness(ctx context.Context, level int) (*types.DeviceControls, error)
	SetScreenTimeout(ctx context.Context, label string) (*types.DeviceControls, error)
	SetTorch(ctx context.Context, on *bool) (*types.DeviceControls, error)
}

type localController struct {
	c *devicectl.Controller
}

func (l localController) SetBrightness(ctx context.Context, level int) (*types.DeviceControls, error) {
	st, err := l.c.SetBrightness(ctx, level)
	return &st, err
}

func (l localController) SetScreenTimeout(ctx context.Context, label string) (*types.DeviceControls, error) {
	st, err := l.c.SetScreenTimeout(ctx, label)
	return &st, err
}

func (l localController) SetTorch(ctx context.Context, on *bool) (*types.DeviceControls, error) {
	if on == nil {
		st, err := l.c.ToggleTorch(ctx)
		return &st, err
	}
	st, err := l.c.SetTorch(ctx, *on)
	return &st, err
}

func withController(fn func(ctx context.Context, c controller) (*types.DeviceControls, error), out io.Writer) error {
	ctx, cancel := commandContext(30 * time.Second)
	defer cancel()

	var (
		st  *types.DeviceControls
		err error
	)
	if c := remote(); c != nil {
		st, err = fn(ctx, c)
	} else {
		env, openErr := openLocal(ctx)
		if openErr != nil {
			return openErr
		}
		defer env.Close()
		st, err = fn(ctx, localController{devicectl.NewController(env.shell)})
	}
	if err != nil {
		return err
	}
	printControls(out, st)
	return nil
}

func printControls(w io.Writer, st *types.DeviceControls) {
	torch := "off"
	if st.Torch {
		torch = "on"
	}
	fmt.Fprintf(w, "Brightness:     %d%%\n", st.Brightness)
	fmt.Fprintf(w, "Screen timeout: %s\n", st.ScreenTimeout)
	fmt.Fprintf(w, "Torch:          %s\n", torch)
}

func timeoutLabels() string {
	labels := make([]string, len(devicectl.ScreenTimeouts))
	for i, t := range devicectl.ScreenTimeouts {
		labels[i] = t.Label
	}
	return strings.Join(labels, ", ")
}

var deviceBrightnessCmd = &cobra.Command{
	Use:   "brightness <0-100>",
	Short: "Set the screen brightness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid brightness %q", args[0])
		}
		return withController(func(ctx context.Context, c controller) (*types.DeviceControls, error) {
			return c.SetBrightness(ctx, level)
		}, cmd.OutOrStdout())
	},
}

var deviceTimeoutCmd = &cobra.Command{
	Use:   "screen-timeout <label>",
	Short: "Set how long the screen stays on",
	Long:  "Set how long the screen stays on. Labels: " + timeoutLabels() + ".",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c controller) (*types.DeviceControls, error) {
			return c.SetScreenTimeout(ctx, args[0])
		}, cmd.OutOrStdout())
	},
}

var deviceTorchCmd = &cobra.Command{
	Use:   "torch [on|off]",
	Short: "Switch the torch, or toggle it without an argument",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var on *bool
		if len(args) == 1 {
			v, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			on = &v
		}
		return withController(func(ctx context.Context, c controller) (*types.DeviceControls, error) {
			return c.SetTorch(ctx, on)
		}, cmd.OutOrStdout())
	},
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceBrightnessCmd, deviceTimeoutCmd, deviceTorchCmd)
}
