package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/penosext/pentools/internal/update"
	"github.com/penosext/pentools/pkg/types"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for and install mini-app updates",
}

// updater is satisfied by the local checker adapter and the API client.
type updater interface {
	CheckUpdate(ctx context.Context) (*types.UpdateState, error)
	InstallUpdate(ctx context.Context) (*types.UpdateState, error)
	CleanupUpdates(ctx context.Context) error
}

type localUpdater struct {
	c *update.Checker
}

func (u localUpdater) CheckUpdate(ctx context.Context) (*types.UpdateState, error) {
	st, err := u.c.Check(ctx)
	return &st, err
}

func (u localUpdater) InstallUpdate(ctx context.Context) (*types.UpdateState, error) {
	if _, err := u.c.Check(ctx); err != nil {
		return nil, err
	}
	if !u.c.State().HasUpdate {
		st := u.c.State()
		return &st, nil
	}
	st, err := u.c.DownloadAndInstall(ctx)
	return &st, err
}

func (u localUpdater) CleanupUpdates(ctx context.Context) error {
	return u.c.Cleanup(ctx)
}

// withUpdater runs fn against the remote server or a local checker.
func withUpdater(fn func(ctx context.Context, u updater) error) error {
	ctx, cancel := commandContext(10 * time.Minute)
	defer cancel()

	if c := remote(); c != nil {
		return fn(ctx, c)
	}

	env, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	checker := update.NewChecker(update.Config{
		APIURL:         cfg.GitHubAPIURL,
		Owner:          cfg.GitHubOwner,
		Repo:           cfg.GitHubRepo,
		CurrentVersion: cfg.CurrentVersion,
		DeviceModel:    cfg.DeviceModel,
		DownloadDir:    cfg.DownloadDir,
	}, env.shell)
	return fn(ctx, localUpdater{checker})
}

func printState(w io.Writer, st *types.UpdateState) {
	fmt.Fprintf(w, "Current version: %s (%s)\n", st.CurrentVersion, st.DeviceModel)
	if st.Latest != nil {
		fmt.Fprintf(w, "Latest release:  %s\n", st.Latest.TagName)
	}
	if st.Asset != nil {
		fmt.Fprintf(w, "Package:         %s\n", st.Asset.Name)
	}
	switch {
	case st.Status == types.UpdateError:
		fmt.Fprintf(w, "Status:          error: %s\n", st.Error)
	case st.HasUpdate:
		fmt.Fprintln(w, "Status:          update available")
	default:
		fmt.Fprintf(w, "Status:          %s\n", st.Status)
	}
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check GitHub for a newer release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUpdater(func(ctx context.Context, u updater) error {
			st, err := u.CheckUpdate(ctx)
			if st != nil {
				printState(cmd.OutOrStdout(), st)
			}
			return err
		})
	},
}

var updateInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and install the latest release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUpdater(func(ctx context.Context, u updater) error {
			st, err := u.InstallUpdate(ctx)
			if st != nil {
				printState(cmd.OutOrStdout(), st)
			}
			return err
		})
	},
}

var updateCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove downloaded update packages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUpdater(func(ctx context.Context, u updater) error {
			if err := u.CleanupUpdates(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Update packages removed")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateCheckCmd)
	updateCmd.AddCommand(updateInstallCmd)
	updateCmd.AddCommand(updateCleanCmd)
}
