package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/penosext/pentools/internal/passwd"
	"github.com/penosext/pentools/internal/terminal"
	"github.com/spf13/cobra"
)

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Start the interactive terminal",
	Long: `Start an interactive terminal on the device shell. Type "help" for the
built-in commands, "exit" to quit. Editor built-ins (vi, vim, nano, ed) open
$EDITOR on a PTY.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		env, err := openLocal(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		in := newInput(os.Stdin)
		out := cmd.OutOrStdout()

		t := terminal.New(env.shell, terminal.Options{
			MaxLines:   cfg.MaxLines,
			MaxHistory: cfg.MaxHistory,
			Navigator:  newPTYEditor(in, os.Stdout),
			Passwd:     passwd.NewChanger(env.shell, ""),
			Scripts:    newScripts(env),
		})
		if err := t.Init(ctx); err != nil {
			printLines(out, out, t.Lines(), false)
			return err
		}
		printLines(out, out, t.Lines(), false)

		return repl(ctx, t, in, out)
	},
}

func repl(ctx context.Context, t *terminal.Terminal, in *input, out io.Writer) error {
	for {
		var (
			line string
			err  error
		)
		secret := t.PasswdActive()
		if secret {
			line, err = in.ReadSecret(out)
			if errors.Is(err, errInterrupted) {
				t.Cancel()
				fmt.Fprintln(out, "password change cancelled")
				continue
			}
		} else {
			fmt.Fprintf(out, "%s $ ", t.Cwd())
			line, err = in.ReadLine()
		}
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		clears := !secret && clearsScreen(line)
		res, err := t.Submit(ctx, line)
		if errors.Is(err, terminal.ErrEmptyInput) {
			continue
		}
		if err != nil && res == nil {
			return err
		}

		if clears {
			fmt.Fprint(out, clearSequence)
		}
		printLines(out, out, res.Lines, true)
		if res.Exit {
			return nil
		}
	}
}

const clearSequence = "\033[H\033[2J"

// clearsScreen reports whether a command line wipes the scrollback.
func clearsScreen(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	return name == "clear" || name == "reset"
}

func init() {
	rootCmd.AddCommand(termCmd)
}
