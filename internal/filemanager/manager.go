// Package filemanager browses and edits the device filesystem through the
// shell. Mutations are confined to a writable root.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/penosext/pentools/internal/listing"
	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

var (
	ErrBusy        = errors.New("file manager is busy")
	ErrPermission  = errors.New("permission denied: outside the writable root")
	ErrInvalidName = errors.New("invalid name")
	ErrNotFound    = errors.New("entry not found")
	ErrUnsupported = errors.New("unsupported file type")
)

// DefaultWritableRoot is the only tree users may modify on the device.
const DefaultWritableRoot = "/userdisk"

// Editor opens a text file for editing, returning to returnDir afterwards.
type Editor interface {
	OpenEditor(ctx context.Context, path, returnDir string) error
}

// Filter selects which entries Entries returns.
type Filter struct {
	ShowHidden bool
	Keyword    string
}

// Manager holds one browsing session: current directory and its entries.
type Manager struct {
	sh     shell.Shell
	root   string
	editor Editor
	now    func() time.Time
	log    *zap.Logger

	mu      sync.Mutex
	busy    bool
	cwd     string
	entries []types.FileEntry
}

// New creates a Manager starting at /. An empty root means
// DefaultWritableRoot.
func New(sh shell.Shell, root string, editor Editor) *Manager {
	if root == "" {
		root = DefaultWritableRoot
	}
	return &Manager{
		sh:     sh,
		root:   listing.NormalizePath(root),
		editor: editor,
		now:    time.Now,
		log:    logging.Named("filemanager"),
		cwd:    "/",
	}
}

// Cwd returns the current directory.
func (m *Manager) Cwd() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cwd
}

// Writable reports whether the current directory accepts mutations.
func (m *Manager) Writable() bool {
	return listing.Within(m.Cwd(), m.root)
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	m.busy = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// Load lists the current directory.
func (m *Manager) Load(ctx context.Context) (*types.DirListing, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (*types.DirListing, error) {
	m.mu.Lock()
	dir := listing.NormalizePath(m.cwd)
	m.cwd = dir
	m.mu.Unlock()

	entries, err := m.list(ctx, dir)
	if err != nil {
		m.mu.Lock()
		m.entries = nil
		if m.cwd != "/" {
			m.cwd = "/"
		}
		m.mu.Unlock()
		m.log.Warn("directory load failed", zap.String("path", dir), zap.Error(err))
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return m.listing(dir, entries), nil
}

func (m *Manager) listing(dir string, entries []types.FileEntry) *types.DirListing {
	total, size := stats(entries)
	return &types.DirListing{Path: dir, Entries: entries, TotalFiles: total, TotalSize: size}
}

func (m *Manager) list(ctx context.Context, dir string) ([]types.FileEntry, error) {
	cmd := "ls -la /"
	if dir != "/" {
		cmd = shell.InDir(dir, "ls -la")
	}
	out, err := m.sh.Exec(ctx, cmd)
	if err == nil {
		return listing.ParseListing(out, dir, m.now()), nil
	}

	m.log.Debug("ls -la failed, falling back to stat", zap.String("path", dir), zap.Error(err))
	return m.listWithStat(ctx, dir)
}

// listWithStat lists names with `ls -1a` and stats each one.
func (m *Manager) listWithStat(ctx context.Context, dir string) ([]types.FileEntry, error) {
	cmd := "ls -1a /"
	if dir != "/" {
		cmd = shell.InDir(dir, "ls -1a")
	}
	out, err := m.sh.Exec(ctx, cmd)
	if err != nil {
		return nil, err
	}

	now := m.now()
	var entries []types.FileEntry
	for _, name := range strings.Split(out, "\n") {
		name = strings.TrimRight(name, "\r")
		if strings.TrimSpace(name) == "" || name == "." || name == ".." {
			continue
		}
		path := listing.JoinPath(dir, name)
		entry := types.FileEntry{
			Name:         name,
			Type:         types.EntryFile,
			Permissions:  "-rw-r--r--",
			ModifiedTime: now.Unix(),
			IsHidden:     strings.HasPrefix(name, "."),
			FullPath:     path,
		}

		statOut, err := m.sh.Exec(ctx, "stat -c '%s %Y %F' "+shell.Quote(path)+" 2>/dev/null")
		if err == nil {
			parts := strings.Fields(statOut)
			if len(parts) >= 3 {
				entry.Size, _ = strconv.ParseInt(parts[0], 10, 64)
				if mt, err := strconv.ParseInt(parts[1], 10, 64); err == nil && mt > 0 {
					entry.ModifiedTime = mt
				}
				kind := strings.Join(parts[2:], " ")
				switch {
				case strings.Contains(kind, "directory"):
					entry.Type = types.EntryDirectory
					entry.Permissions = "drwxr-xr-x"
				case strings.Contains(kind, "symbolic link"):
					entry.Type = types.EntryLink
					entry.Permissions = "lrwxrwxrwx"
				case !strings.Contains(kind, "regular"):
					entry.Type = types.EntryUnknown
				}
			}
		}
		entry.ModifiedTimeFormatted = listing.FormatTime(entry.ModifiedTime, now.Location())
		entry.SizeFormatted = listing.DisplaySize(entry)
		entries = append(entries, entry)
	}
	return entries, nil
}

// ChangeDir moves to path (absolute or relative to the current directory)
// and loads it.
func (m *Manager) ChangeDir(ctx context.Context, path string) (*types.DirListing, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	m.mu.Lock()
	m.cwd = listing.JoinPath(m.cwd, path)
	m.mu.Unlock()
	return m.load(ctx)
}

// GoUp loads the parent of the current directory.
func (m *Manager) GoUp(ctx context.Context) (*types.DirListing, error) {
	return m.ChangeDir(ctx, listing.ParentPath(m.Cwd()))
}

// Open enters a directory or opens a text file in the editor. The returned
// listing is non-nil only when the directory changed.
func (m *Manager) Open(ctx context.Context, name string) (*types.DirListing, error) {
	entry, ok := m.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if entry.IsDir() {
		return m.ChangeDir(ctx, entry.FullPath)
	}
	if entry.Type == types.EntryLink {
		if _, err := m.sh.Exec(ctx, "test -d "+shell.Quote(entry.FullPath)); err == nil {
			return m.ChangeDir(ctx, entry.FullPath)
		}
	}

	if _, err := m.sh.Exec(ctx, "test -f "+shell.Quote(entry.FullPath)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entry.FullPath)
	}
	if !listing.IsTextFile(entry.Name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, entry.Name)
	}
	if m.editor == nil {
		return nil, fmt.Errorf("%w: no editor", ErrUnsupported)
	}
	return nil, m.editor.OpenEditor(ctx, entry.FullPath, m.Cwd())
}

// Entries returns the loaded entries filtered by f, directories first and
// then by case-insensitive name.
func (m *Manager) Entries(f Filter) []types.FileEntry {
	m.mu.Lock()
	src := m.entries
	m.mu.Unlock()
	return FilterEntries(src, f)
}

// FilterEntries applies f to src and sorts the result into a new slice.
func FilterEntries(src []types.FileEntry, f Filter) []types.FileEntry {
	keyword := strings.ToLower(strings.TrimSpace(f.Keyword))
	out := make([]types.FileEntry, 0, len(src))
	for _, e := range src {
		if e.IsHidden && !f.ShowHidden {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(e.Name), keyword) {
			continue
		}
		out = append(out, e)
	}
	SortEntries(out)
	return out
}

// SortEntries orders directories first, then by case-insensitive name.
func SortEntries(entries []types.FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// Stats returns the loaded entry count and the total size of regular files.
func (m *Manager) Stats() (int, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stats(m.entries)
}

func stats(entries []types.FileEntry) (int, int64) {
	var size int64
	for _, e := range entries {
		if e.Type == types.EntryFile {
			size += e.Size
		}
	}
	return len(entries), size
}

func (m *Manager) lookup(name string) (types.FileEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Name == name {
			return e, true
		}
	}
	return types.FileEntry{}, false
}
