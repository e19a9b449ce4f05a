package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/penosext/pentools/internal/prompt"
	"github.com/penosext/pentools/internal/toolshell"
	"github.com/spf13/cobra"
)

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Manage toolshell scripts",
	Long: `Toolshell scripts live in the toolshell directory. Enabled scripts can be run
from the terminal by name.`,
}

func newScripts(env *localEnv) *toolshell.Manager {
	return toolshell.NewManager(env.shell, env.store, cfg.ToolshellDir)
}

func withScripts(fn func(ctx context.Context, m *toolshell.Manager) error) error {
	ctx, cancel := commandContext(time.Minute)
	defer cancel()

	env, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, newScripts(env))
}

var scriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scripts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScripts(func(ctx context.Context, m *toolshell.Manager) error {
			scripts, err := m.Scan(ctx)
			if err != nil {
				return err
			}
			if len(scripts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No scripts in %s\n", m.Dir())
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tENABLED\tPATH")
			for _, s := range scripts {
				fmt.Fprintf(w, "%s\t%v\t%s\n", s.Name, s.Enabled, s.Path)
			}
			return w.Flush()
		})
	},
}

var scriptsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a script",
	Long: `Create a script from --file, or from stdin when --file is "-". Without a
name, prompt for one. New scripts start disabled.
Example: pentools scripts new backup --file backup.sh`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		var (
			data []byte
			err  error
		)
		if file == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}

		return withScripts(func(ctx context.Context, m *toolshell.Manager) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			} else {
				p := prompt.NewLinePrompter(os.Stdin, cmd.OutOrStdout())
				name, err = p.Prompt(ctx, prompt.Request{
					Label: "Script name",
					Validate: func(v string) string {
						if toolshell.ValidateName(strings.TrimSuffix(strings.TrimSpace(v), ".sh")) != nil {
							return "names cannot be empty or contain spaces, quotes, / or .."
						}
						return ""
					},
				})
				if err != nil {
					return err
				}
			}

			s, err := m.Create(ctx, name, string(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s (disabled)\n", s.Path)
			return nil
		})
	},
}

var scriptsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Allow the terminal to run a script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScripts(func(ctx context.Context, m *toolshell.Manager) error {
			if err := m.Enable(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Enabled %s\n", args[0])
			return nil
		})
	},
}

var scriptsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Stop the terminal from running a script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScripts(func(ctx context.Context, m *toolshell.Manager) error {
			if err := m.Disable(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Disabled %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(scriptsCmd)
	scriptsCmd.AddCommand(scriptsListCmd)
	scriptsCmd.AddCommand(scriptsNewCmd)
	scriptsCmd.AddCommand(scriptsEnableCmd)
	scriptsCmd.AddCommand(scriptsDisableCmd)

	scriptsNewCmd.Flags().StringP("file", "f", "", `Script source file, or "-" for stdin`)
}
