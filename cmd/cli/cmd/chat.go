package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/penosext/pentools/internal/chat"
	"github.com/penosext/pentools/internal/prompt"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage AI chat conversations",
}

func withChat(fn func(ctx context.Context, svc *chat.Service) error) error {
	ctx, cancel := commandContext(time.Minute)
	defer cancel()

	env, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, chat.NewService(env.store))
}

var chatListCmd = &cobra.Command{
	Use:   "list [keyword]",
	Short: "List conversations, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword := ""
		if len(args) == 1 {
			keyword = args[0]
		}
		return withChat(func(ctx context.Context, svc *chat.Service) error {
			list, err := svc.List(ctx, keyword)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tTITLE\tUPDATED")
			for _, c := range list {
				mark := ""
				if c.Current {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, c.ID, c.Title, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		})
	},
}

var chatNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := ""
		if len(args) == 1 {
			title = args[0]
		}
		return withChat(func(ctx context.Context, svc *chat.Service) error {
			c, err := svc.Create(ctx, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s (%s)\n", c.Title, c.ID)
			return nil
		})
	},
}

var chatUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a conversation current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withChat(func(ctx context.Context, svc *chat.Service) error {
			c, err := svc.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Current conversation: %s\n", c.Title)
			return nil
		})
	},
}

var chatRenameCmd = &cobra.Command{
	Use:   "rename <id> [title]",
	Short: "Rename a conversation",
	Long:  `Rename a conversation. Without a title, prompt for one.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withChat(func(ctx context.Context, svc *chat.Service) error {
			var title string
			if len(args) == 2 {
				title = args[1]
			} else {
				current, err := svc.Load(ctx, args[0])
				if err != nil {
					return err
				}
				p := prompt.NewLinePrompter(os.Stdin, cmd.OutOrStdout())
				title, err = p.Prompt(ctx, prompt.Request{
					Label:    "New title",
					Initial:  current.Title,
					Validate: prompt.NotEmpty("title"),
				})
				if err != nil {
					return err
				}
			}

			c, err := svc.Rename(ctx, args[0], title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Renamed to %s\n", c.Title)
			return nil
		})
	},
}

var chatRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withChat(func(ctx context.Context, svc *chat.Service) error {
			if err := svc.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatUseCmd)
	chatCmd.AddCommand(chatRenameCmd)
	chatCmd.AddCommand(chatRmCmd)
}
