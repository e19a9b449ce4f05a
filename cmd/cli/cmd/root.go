package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/penosext/pentools/internal/config"
	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/internal/store"
	"github.com/penosext/pentools/pkg/client"
	"github.com/spf13/cobra"
)

var (
	baseURL  string
	apiKey   string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pentools",
	Short: "pentools - terminal, files and device tools for the pen",
	Long: `pentools runs shell commands, browses files, reports device state and manages
updates, chats and toolshell scripts on the device.

Commands run against the local shell. Pass --url to drive a remote pentools
server instead (supported by run, ls, info and update).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		return logging.Init(logging.Config{
			Level:      logLevel,
			Format:     "console",
			OutputPath: "stderr",
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", os.Getenv("PENTOOLS_URL"), "pentools server URL (remote mode)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("PENTOOLS_API_KEY"), "pentools server API key")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// remote returns an API client when --url is set.
func remote() *client.Client {
	if baseURL == "" {
		return nil
	}
	return client.NewClient(baseURL, apiKey)
}

// localEnv is the on-device stack used by local commands.
type localEnv struct {
	store *store.Store
	shell shell.Shell
}

// openLocal opens the state store and an initialized shell.
func openLocal(ctx context.Context) (*localEnv, error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	timeout := time.Duration(cfg.ExecTimeoutSec) * time.Second
	sh := shell.NewRecorded(shell.NewLocal(cfg.ShellPath, timeout), st)
	if err := sh.Initialize(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("shell initialization failed: %w", err)
	}
	return &localEnv{store: st, shell: sh}, nil
}

func (e *localEnv) Close() error {
	return e.store.Close()
}

// commandContext bounds a one-shot command.
func commandContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
