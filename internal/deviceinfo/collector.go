// Package deviceinfo gathers system, CPU, memory, storage and network facts
// from the device shell.
package deviceinfo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxRunOutput = 500
	unknown      = "unknown"
)

// Collector runs device probes through the shell.
type Collector struct {
	sh           shell.Shell
	defaultModel string
	log          *zap.Logger
}

// NewCollector creates a Collector. defaultModel is reported when the
// device does not expose a model name.
func NewCollector(sh shell.Shell, defaultModel string) *Collector {
	return &Collector{sh: sh, defaultModel: defaultModel, log: logging.Named("deviceinfo")}
}

// Collect runs every probe concurrently. Probes fail soft: a failed probe
// leaves its fields at their fallback values.
func (c *Collector) Collect(ctx context.Context) (*types.DeviceInfo, error) {
	info := &types.DeviceInfo{
		DeviceModel:   c.defaultModel,
		DeviceName:    unknown,
		KernelVersion: unknown,
		Hostname:      unknown,
		Uptime:        unknown,
		CPUModel:      unknown,
		CPUArch:       unknown,
		CPUFrequency:  unknown,
		IPAddress:     unknown,
		MACAddress:    unknown,
		NetworkStatus: unknown,
		BatteryLevel:  unknown,
	}

	// Each probe writes a disjoint set of fields.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { c.system(gctx, info); return nil })
	g.Go(func() error { c.cpu(gctx, info); return nil })
	g.Go(func() error { c.memory(gctx, info); return nil })
	g.Go(func() error { c.storage(gctx, info); return nil })
	g.Go(func() error { c.network(gctx, info); return nil })
	g.Go(func() error { c.misc(gctx, info); return nil })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return info, nil
}

// probe runs cmd and returns its trimmed output, logging failures.
func (c *Collector) probe(ctx context.Context, cmd string) (string, bool) {
	out, err := c.sh.Exec(ctx, cmd)
	if err != nil {
		c.log.Debug("probe failed", zap.String("command", cmd), zap.Error(err))
		return "", false
	}
	out = strings.TrimSpace(out)
	return out, out != ""
}

func (c *Collector) system(ctx context.Context, info *types.DeviceInfo) {
	if out, ok := c.probe(ctx, "uname -r"); ok {
		info.KernelVersion = out
	}
	if out, ok := c.probe(ctx, "hostname"); ok {
		info.Hostname = out
	}
	if out, ok := c.probe(ctx, "cat /proc/device-tree/model 2>/dev/null | tr -d '\\0'"); ok {
		info.DeviceName = out
	} else if out, ok := c.probe(ctx, "getprop ro.product.name 2>/dev/null"); ok {
		info.DeviceName = out
	}
	if out, ok := c.probe(ctx, "getprop ro.product.model 2>/dev/null"); ok {
		info.DeviceModel = out
	}
	if out, ok := c.probe(ctx, "cat /proc/uptime"); ok {
		if up, ok := ParseUptime(out); ok {
			info.Uptime = up
		}
	}
	if out, ok := c.probe(ctx, "date '+%Y-%m-%d %H:%M:%S'"); ok {
		info.SystemTime = out
	} else {
		info.SystemTime = time.Now().Format("2006-01-02 15:04:05")
	}
}

func (c *Collector) cpu(ctx context.Context, info *types.DeviceInfo) {
	if out, ok := c.probe(ctx, "grep -m1 -iE 'model name|Hardware|Processor' /proc/cpuinfo | cut -d: -f2"); ok {
		info.CPUModel = out
	}
	if out, ok := c.probe(ctx, "nproc 2>/dev/null || grep -c ^processor /proc/cpuinfo"); ok {
		info.CPUCores = parseCount(out)
	}
	if out, ok := c.probe(ctx, "uname -m"); ok {
		info.CPUArch = out
	}
	if out, ok := c.probe(ctx, "cat /sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq 2>/dev/null"); ok {
		info.CPUFrequency = ParseCPUFreq(out)
	}
	if out, ok := c.probe(ctx, "uptime"); ok {
		info.CPULoad, _ = ParseLoadAverage(out)
	}
}

func (c *Collector) memory(ctx context.Context, info *types.DeviceInfo) {
	if out, ok := c.probe(ctx, "free -b"); ok {
		if total, used, free, ok := ParseFree(out); ok {
			info.MemTotal, info.MemUsed, info.MemFree = total, used, free
		}
	}
}

func (c *Collector) storage(ctx context.Context, info *types.DeviceInfo) {
	if out, ok := c.probe(ctx, "df -B1 / | tail -1"); ok {
		if total, used, free, ok := ParseDF(out); ok {
			info.StorageTotal, info.StorageUsed, info.StorageFree = total, used, free
		}
	}
}

func (c *Collector) network(ctx context.Context, info *types.DeviceInfo) {
	if out, ok := c.probe(ctx, "ip addr show | grep 'inet ' | grep -v 127.0.0.1 | head -1 | awk '{print $2}' | cut -d/ -f1"); ok {
		info.IPAddress = out
	}
	if out, ok := c.probe(ctx, "ip link show | grep link/ether | head -1 | awk '{print $2}'"); ok {
		info.MACAddress = out
	}
	if out, ok := c.probe(ctx, "ping -c 1 -W 1 8.8.8.8 >/dev/null 2>&1 && echo online || echo offline"); ok {
		info.NetworkStatus = out
	}
}

func (c *Collector) misc(ctx context.Context, info *types.DeviceInfo) {
	if out, ok := c.probe(ctx, "(ps -A 2>/dev/null || ps) | wc -l"); ok {
		if n := parseCount(out); n > 0 {
			info.Processes = n - 1
		}
	}
	if out, ok := c.probe(ctx, "who | wc -l"); ok {
		info.Users = parseCount(out)
	}
	if out, ok := c.probe(ctx, "cat /sys/class/power_supply/*/capacity 2>/dev/null | head -1"); ok {
		info.BatteryLevel = out + "%"
	}
}

var diagnostics = []struct {
	title   string
	command string
}{
	{"processes", "(ps -A 2>/dev/null || ps) | wc -l"},
	{"disk", "df -h / | tail -1"},
	{"memory", "free -h 2>/dev/null || free"},
	{"network", "ping -c 2 8.8.8.8 2>&1 | tail -2"},
}

// Diagnostics runs the diagnostic checks in order and returns a sectioned
// report. A failing check is reported in its section.
func (c *Collector) Diagnostics(ctx context.Context) (string, error) {
	var b strings.Builder
	for i, d := range diagnostics {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n", d.title)
		out, err := c.sh.Exec(ctx, d.command)
		if err != nil {
			fmt.Fprintf(&b, "check failed: %v\n", err)
			continue
		}
		b.WriteString(strings.TrimSpace(out))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Run executes an arbitrary command and returns its trimmed output, cut to
// 500 characters.
func (c *Collector) Run(ctx context.Context, command string) (string, error) {
	out, err := c.sh.Exec(ctx, command)
	if err != nil {
		return "", err
	}
	return Truncate(strings.TrimSpace(out), maxRunOutput), nil
}

// Truncate cuts s to n runes, appending a marker when it did.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "...\n(output truncated)"
}
