package deviceinfo

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFree extracts total, used and free bytes from `free -b` output.
func ParseFree(out string) (total, used, free uint64, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 || fields[0] != "Mem:" {
			continue
		}
		total, err1 := strconv.ParseUint(fields[1], 10, 64)
		used, err2 := strconv.ParseUint(fields[2], 10, 64)
		free, err3 := strconv.ParseUint(fields[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, 0, 0, false
		}
		return total, used, free, true
	}
	return 0, 0, 0, false
}

// ParseDF extracts size, used and available bytes from the last line of
// `df -B1` output.
func ParseDF(out string) (total, used, free uint64, ok bool) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 5 {
		return 0, 0, 0, false
	}
	// A long device name wraps onto its own line, shifting the columns.
	if _, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
		fields = append([]string{""}, fields...)
	}
	total, err1 := strconv.ParseUint(fields[1], 10, 64)
	used, err2 := strconv.ParseUint(fields[2], 10, 64)
	free, err3 := strconv.ParseUint(fields[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return total, used, free, true
}

// ParseLoadAverage returns the 1-minute load average from `uptime` output.
func ParseLoadAverage(out string) (float64, bool) {
	i := strings.Index(out, "load average")
	if i < 0 {
		return 0, false
	}
	rest := out[i:]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return 0, false
	}
	first := strings.TrimSpace(strings.SplitN(rest[colon+1:], ",", 2)[0])
	v, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCPUFreq renders a cpufreq value in kHz as GHz.
func ParseCPUFreq(out string) string {
	khz, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || khz <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.2f GHz", khz/1e6)
}

// ParseUptime renders the first field of /proc/uptime as "Nd Nh Nm".
func ParseUptime(out string) (string, bool) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", false
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || secs < 0 {
		return "", false
	}
	total := int64(secs)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes), true
	}
	return fmt.Sprintf("%dh %dm", hours, minutes), true
}

// UsagePercent returns used/total as a percentage, 0 when total is 0.
func UsagePercent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

func parseCount(out string) int {
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0
	}
	return n
}
