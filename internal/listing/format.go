package listing

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/penosext/pentools/pkg/types"
)

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// FormatSize renders a byte count with one decimal above 1 KB.
func FormatSize(n int64) string {
	switch {
	case n < kib:
		return fmt.Sprintf("%d B", n)
	case n < mib:
		return fmt.Sprintf("%.1f KB", float64(n)/kib)
	case n < gib:
		return fmt.Sprintf("%.1f MB", float64(n)/mib)
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/gib)
	}
}

// DisplaySize is FormatSize, except directories show as <DIR>.
func DisplaySize(e types.FileEntry) string {
	if e.IsDir() {
		return "<DIR>"
	}
	return FormatSize(e.Size)
}

// FormatTime renders unix seconds as YYYY-MM-DD HH:MM in loc.
func FormatTime(unix int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(unix, 0).In(loc).Format("2006-01-02 15:04")
}

// NormalizePath returns p as an absolute, cleaned path without a trailing
// slash (except for the root).
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// JoinPath resolves name against dir. Absolute names replace dir.
func JoinPath(dir, name string) string {
	if strings.HasPrefix(name, "/") {
		return NormalizePath(name)
	}
	if dir == "/" || dir == "" {
		return NormalizePath("/" + name)
	}
	return NormalizePath(dir + "/" + name)
}

// ParentPath returns the parent directory of p; the root is its own parent.
func ParentPath(p string) string {
	return path.Dir(NormalizePath(p))
}

// Within reports whether p is root or lies below it.
func Within(p, root string) bool {
	p, root = NormalizePath(p), NormalizePath(root)
	if root == "/" {
		return true
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

var textFileRe = regexp.MustCompile(`(?i)\.(txt|json|js|ts|vue|less|css|md|xml|html|htm|sh|bash|conf|cfg|ini|log|yaml|yml)$`)

// IsTextFile reports whether name has an extension the editor opens.
func IsTextFile(name string) bool {
	return textFileRe.MatchString(name)
}
