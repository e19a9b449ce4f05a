package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/penosext/pentools/internal/filemanager"
	"github.com/penosext/pentools/internal/listing"
	"github.com/penosext/pentools/pkg/types"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Long: `List a directory the way the file manager sees it: directories first, then
files by name. Dot files are hidden unless -a is given.
Example: pentools ls /userdisk -l --find log`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/userdisk"
		if len(args) == 1 {
			path = args[0]
		}
		all, _ := cmd.Flags().GetBool("all")
		long, _ := cmd.Flags().GetBool("long")
		keyword, _ := cmd.Flags().GetString("find")

		ctx, cancel := commandContext(time.Minute)
		defer cancel()

		var res *types.DirListing
		if c := remote(); c != nil {
			var err error
			if res, err = c.ListFiles(ctx, path, all, keyword); err != nil {
				return fmt.Errorf("failed to list %s: %w", path, err)
			}
		} else {
			env, err := openLocal(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			fm := filemanager.New(env.shell, cfg.WritableRoot, nil)
			if res, err = fm.ChangeDir(ctx, path); err != nil {
				return err
			}
			res.Entries = fm.Entries(filemanager.Filter{ShowHidden: all, Keyword: keyword})
		}

		out := cmd.OutOrStdout()
		if !long {
			for _, e := range res.Entries {
				name := e.Name
				if e.IsDir() {
					name += "/"
				}
				fmt.Fprintln(out, name)
			}
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PERMISSIONS\tSIZE\tMODIFIED\tNAME")
		for _, e := range res.Entries {
			name := e.Name
			if e.LinkTarget != "" {
				name += " -> " + e.LinkTarget
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				e.Permissions, listing.DisplaySize(e), listing.FormatTime(e.ModifiedTime, time.Local), name)
		}
		w.Flush()
		fmt.Fprintf(out, "\n%d files, %s\n", res.TotalFiles, listing.FormatSize(res.TotalSize))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolP("all", "a", false, "Show hidden entries")
	lsCmd.Flags().BoolP("long", "l", false, "Long listing")
	lsCmd.Flags().String("find", "", "Only show names containing this keyword")
}
