package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/penosext/pentools/internal/deviceinfo"
	"github.com/penosext/pentools/internal/listing"
	"github.com/penosext/pentools/pkg/types"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device information",
	Long: `Show model, system, CPU, memory, storage and network details. With --diag,
print the diagnostics report (processes, disk, memory, network) instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		diag, _ := cmd.Flags().GetBool("diag")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		ctx, cancel := commandContext(time.Minute)
		defer cancel()

		var (
			info   *types.DeviceInfo
			report string
			err    error
		)
		if c := remote(); c != nil {
			if diag {
				report, err = c.Diagnostics(ctx)
			} else {
				info, err = c.DeviceInfo(ctx)
			}
		} else {
			env, openErr := openLocal(ctx)
			if openErr != nil {
				return openErr
			}
			defer env.Close()

			collector := deviceinfo.NewCollector(env.shell, cfg.DeviceModel)
			if diag {
				report, err = collector.Diagnostics(ctx)
			} else {
				info, err = collector.Collect(ctx)
			}
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if diag {
			fmt.Fprint(out, report)
			return nil
		}
		if jsonOutput {
			data, _ := json.MarshalIndent(info, "", "  ")
			fmt.Fprintln(out, string(data))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		rows := [][2]string{
			{"Model", info.DeviceModel},
			{"Name", info.DeviceName},
			{"Hostname", info.Hostname},
			{"Kernel", info.KernelVersion},
			{"Uptime", info.Uptime},
			{"Time", info.SystemTime},
			{"CPU", fmt.Sprintf("%s (%d cores, %s, %s)", info.CPUModel, info.CPUCores, info.CPUArch, info.CPUFrequency)},
			{"Load", fmt.Sprintf("%.2f", info.CPULoad)},
			{"Memory", usage(info.MemUsed, info.MemTotal)},
			{"Storage", usage(info.StorageUsed, info.StorageTotal)},
			{"IP", info.IPAddress},
			{"MAC", info.MACAddress},
			{"Network", info.NetworkStatus},
			{"Processes", fmt.Sprint(info.Processes)},
			{"Users", fmt.Sprint(info.Users)},
			{"Battery", info.BatteryLevel},
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%s:\t%s\n", r[0], r[1])
		}
		return w.Flush()
	},
}

func usage(used, total uint64) string {
	return fmt.Sprintf("%s / %s (%.0f%%)",
		listing.FormatSize(int64(used)), listing.FormatSize(int64(total)),
		deviceinfo.UsagePercent(used, total))
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("diag", false, "Print the diagnostics report")
	infoCmd.Flags().Bool("json", false, "Output as JSON")
}
