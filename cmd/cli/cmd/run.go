package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/penosext/pentools/internal/terminal"
	"github.com/penosext/pentools/pkg/types"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <command> [args...]",
	Short: "Run one terminal command",
	Long: `Run a single line through the terminal dispatcher, so built-ins such as
cd, history and test work the same as in the interactive terminal.
Example: pentools run ls -la /userdisk`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")
		ctx, cancel := commandContext(2 * time.Minute)
		defer cancel()

		var (
			res *types.CommandResult
			err error
		)
		if c := remote(); c != nil {
			res, err = c.Submit(ctx, input)
		} else {
			res, err = runLocal(ctx, input)
		}
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			data, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		failed := printLines(cmd.OutOrStdout(), cmd.ErrOrStderr(), res.Lines, true)
		if failed {
			return fmt.Errorf("command failed")
		}
		return nil
	},
}

func runLocal(ctx context.Context, input string) (*types.CommandResult, error) {
	env, err := openLocal(ctx)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	term := terminal.New(env.shell, terminal.Options{
		MaxLines:   cfg.MaxLines,
		MaxHistory: cfg.MaxHistory,
		Scripts:    newScripts(env),
	})
	if err := term.Init(ctx); err != nil {
		return nil, err
	}
	return term.Submit(ctx, input)
}

// printLines writes output lines to out and error lines to errOut. Command
// echo lines are skipped when skipCommand is set. It reports whether any
// error line was printed.
func printLines(out, errOut io.Writer, lines []types.TerminalLine, skipCommand bool) bool {
	failed := false
	for _, l := range lines {
		switch l.Type {
		case types.LineCommand:
			if !skipCommand {
				fmt.Fprintln(out, l.Content)
			}
		case types.LineError:
			failed = true
			fmt.Fprintln(errOut, l.Content)
		case types.LineSystem:
			fmt.Fprintln(errOut, l.Content)
		default:
			fmt.Fprintln(out, l.Content)
		}
	}
	return failed
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Output as JSON")
	// Stop parsing flags after the first non-flag arg so that
	// arguments like -la are passed to the command.
	runCmd.Flags().SetInterspersed(false)
}
