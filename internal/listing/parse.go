// Package listing parses `ls -la` output into file entries.
package listing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/penosext/pentools/internal/metrics"
	"github.com/penosext/pentools/pkg/types"
)

const maxSize = 1_000_000_000_000

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

var (
	clockRe   = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	yearRe    = regexp.MustCompile(`^\d{4}$`)
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoTimeRe = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2}(\.\d+)?)?$`)
	zoneRe    = regexp.MustCompile(`^[+-]\d{4}$`)
)

// dateSpan locates the date columns of a split listing line.
type dateSpan struct {
	start, end int // tokens[start:end] are the date columns
	modified   time.Time
}

// ParseLine parses one `ls -la` line. The second result is false when the
// line is not an entry (header, blank, `.`/`..`, or unrecognized).
func ParseLine(line, currentDir string, now time.Time) (*types.FileEntry, bool) {
	entry, _ := parseLine(line, currentDir, now)
	return entry, entry != nil
}

// parseLine also reports whether a rejected line looked malformed, as
// opposed to an expected skip like the `total` header or a dot entry.
func parseLine(line, currentDir string, now time.Time) (*types.FileEntry, bool) {
	tokens, offsets := fields(line)
	if len(tokens) < 6 {
		return nil, len(tokens) > 0 && tokens[0] != "total"
	}

	// Mode strings are ten characters, possibly `?` when stat failed.
	perms := tokens[0]
	if len(perms) < 10 || strings.ContainsRune(perms, ':') {
		return nil, true
	}
	typ := types.EntryUnknown
	switch perms[0] {
	case '-':
		typ = types.EntryFile
	case 'd':
		typ = types.EntryDirectory
	case 'l':
		typ = types.EntryLink
	}

	var name string
	var sizeEnd int
	modified := now

	if span, ok := findDate(tokens, now); ok {
		if span.end >= len(tokens) {
			return nil, true
		}
		name = strings.TrimRight(line[offsets[span.end]:], "\r\n")
		sizeEnd = span.start
		modified = span.modified
	} else {
		name = tokens[len(tokens)-1]
		sizeEnd = len(tokens) - 1
	}

	var target string
	if typ == types.EntryLink {
		if i := strings.Index(name, " -> "); i >= 0 {
			name, target = name[:i], name[i+4:]
		}
	}
	if name == "." || name == ".." {
		return nil, false
	}

	size := findSize(tokens, sizeEnd)
	entry := &types.FileEntry{
		Name:                  name,
		Type:                  typ,
		Size:                  size,
		ModifiedTime:          modified.Unix(),
		ModifiedTimeFormatted: FormatTime(modified.Unix(), now.Location()),
		Permissions:           perms,
		IsHidden:              strings.HasPrefix(name, "."),
		FullPath:              JoinPath(currentDir, name),
		IsExecutable:          strings.Contains(perms, "x"),
		LinkTarget:            target,
	}
	entry.SizeFormatted = DisplaySize(*entry)
	return entry, false
}

// ParseListing parses a whole `ls -la` output, dropping non-entry lines.
func ParseListing(output, currentDir string, now time.Time) []types.FileEntry {
	var entries []types.FileEntry
	for _, line := range strings.Split(output, "\n") {
		entry, malformed := parseLine(strings.TrimRight(line, "\r"), currentDir, now)
		if entry != nil {
			entries = append(entries, *entry)
			continue
		}
		if malformed {
			metrics.ListingLinesSkipped.Inc()
		}
	}
	return entries
}

// fields splits line like strings.Fields and also returns the byte offset
// of each token, so names keep their original spacing.
func fields(line string) ([]string, []int) {
	var tokens []string
	var offsets []int
	start := -1
	for i, r := range line {
		space := r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
		switch {
		case space && start >= 0:
			tokens = append(tokens, line[start:i])
			offsets = append(offsets, start)
			start = -1
		case !space && start < 0:
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, line[start:])
		offsets = append(offsets, start)
	}
	return tokens, offsets
}

// findDate returns the first date column group after the permissions and
// link count.
func findDate(tokens []string, now time.Time) (dateSpan, bool) {
	for i := 2; i+1 < len(tokens); i++ {
		if month, ok := months[tokens[i]]; ok && i+2 < len(tokens) {
			day, err := strconv.Atoi(tokens[i+1])
			if err != nil || day < 1 || day > 31 {
				continue
			}
			last := tokens[i+2]
			if m := clockRe.FindStringSubmatch(last); m != nil {
				hour, _ := strconv.Atoi(m[1])
				minute, _ := strconv.Atoi(m[2])
				t := time.Date(now.Year(), month, day, hour, minute, 0, 0, now.Location())
				if t.After(now.Add(24 * time.Hour)) {
					t = t.AddDate(-1, 0, 0)
				}
				return dateSpan{start: i, end: i + 3, modified: t}, true
			}
			if yearRe.MatchString(last) {
				year, _ := strconv.Atoi(last)
				t := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
				return dateSpan{start: i, end: i + 3, modified: t}, true
			}
			continue
		}

		if isoDateRe.MatchString(tokens[i]) && isoTimeRe.MatchString(tokens[i+1]) {
			end := i + 2
			value := tokens[i] + " " + tokens[i+1]
			layout := "2006-01-02 15:04:05.999999999"
			if strings.Count(tokens[i+1], ":") == 1 {
				layout = "2006-01-02 15:04"
			}
			var t time.Time
			var err error
			if end+1 < len(tokens) && zoneRe.MatchString(tokens[end]) {
				t, err = time.Parse(layout+" -0700", value+" "+tokens[end])
				end++
			} else {
				t, err = time.ParseInLocation(layout, value, now.Location())
			}
			if err != nil {
				t = now
			}
			return dateSpan{start: i, end: end, modified: t}, true
		}
	}
	return dateSpan{}, false
}

// findSize scans backwards from end for the last plausible byte count,
// stopping before the link-count column.
func findSize(tokens []string, end int) int64 {
	for i := end - 1; i >= 2; i-- {
		n, err := strconv.ParseInt(tokens[i], 10, 64)
		if err == nil && n >= 0 && n < maxSize {
			return n
		}
	}
	return 0
}
