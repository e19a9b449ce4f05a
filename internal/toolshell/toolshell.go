// Package toolshell manages user shell scripts that the terminal can run by
// name once enabled.
package toolshell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/internal/store"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

// DefaultDir is where scripts live on the device.
const DefaultDir = "/userdisk/paper/toolshell"

const enableKey = "toolshell_enable"

var (
	ErrInvalidName = errors.New("invalid script name")
	ErrEmpty       = errors.New("script content cannot be empty")
	ErrNotFound    = errors.New("script not found")
)

// Settings persists the enabled map.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Manager lists, creates and toggles scripts in one directory.
type Manager struct {
	sh       shell.Shell
	settings Settings
	dir      string
	log      *zap.Logger

	mu      sync.Mutex
	scripts map[string]types.Script
}

// NewManager creates a Manager for dir (DefaultDir when empty).
func NewManager(sh shell.Shell, settings Settings, dir string) *Manager {
	if dir == "" {
		dir = DefaultDir
	}
	return &Manager{
		sh:       sh,
		settings: settings,
		dir:      strings.TrimRight(dir, "/"),
		log:      logging.Named("toolshell"),
		scripts:  make(map[string]types.Script),
	}
}

// Dir returns the scripts directory.
func (m *Manager) Dir() string { return m.dir }

// EnsureDir creates the scripts directory if missing.
func (m *Manager) EnsureDir(ctx context.Context) error {
	if _, err := m.sh.Exec(ctx, "mkdir -p "+shell.Quote(m.dir)); err != nil {
		return fmt.Errorf("create %s: %w", m.dir, err)
	}
	return nil
}

// Scan lists the .sh files in the directory sorted by name. A missing
// directory yields an empty list.
func (m *Manager) Scan(ctx context.Context) ([]types.Script, error) {
	enabled, err := m.enabledMap(ctx)
	if err != nil {
		return nil, err
	}

	out, err := m.sh.Exec(ctx, "ls -1 "+shell.Quote(m.dir))
	if err != nil {
		m.log.Debug("scan failed", zap.String("dir", m.dir), zap.Error(err))
		out = ""
	}

	found := make(map[string]types.Script)
	var scripts []types.Script
	for _, line := range strings.Split(out, "\n") {
		file := strings.TrimSpace(line)
		if !strings.HasSuffix(file, ".sh") || file == ".sh" {
			continue
		}
		name := strings.TrimSuffix(file, ".sh")
		s := types.Script{
			Name:     name,
			Filename: file,
			Path:     m.dir + "/" + file,
			Enabled:  enabled[name],
		}
		found[name] = s
		scripts = append(scripts, s)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })

	m.mu.Lock()
	m.scripts = found
	m.mu.Unlock()
	return scripts, nil
}

// Create writes a new script, marks it executable and leaves it disabled.
// The name is given without the .sh suffix.
func (m *Manager) Create(ctx context.Context, name, content string) (*types.Script, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".sh")
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmpty
	}
	if err := m.EnsureDir(ctx); err != nil {
		return nil, err
	}

	path := m.dir + "/" + name + ".sh"
	if _, err := m.sh.Exec(ctx, WriteCommand(path, content)); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}
	if err := m.setEnabled(ctx, name, false); err != nil {
		return nil, err
	}

	s := types.Script{Name: name, Filename: name + ".sh", Path: path}
	m.mu.Lock()
	m.scripts[name] = s
	m.mu.Unlock()
	m.log.Info("script created", zap.String("path", path))
	return &s, nil
}

// Enable allows the terminal to run name.
func (m *Manager) Enable(ctx context.Context, name string) error {
	return m.toggle(ctx, name, true)
}

// Disable stops the terminal from running name.
func (m *Manager) Disable(ctx context.Context, name string) error {
	return m.toggle(ctx, name, false)
}

func (m *Manager) toggle(ctx context.Context, name string, on bool) error {
	if _, ok := m.lookup(ctx, name); !ok {
		return ErrNotFound
	}
	return m.setEnabled(ctx, name, on)
}

// Resolve returns the path of an enabled script.
func (m *Manager) Resolve(ctx context.Context, name string) (string, bool) {
	enabled, err := m.enabledMap(ctx)
	if err != nil || !enabled[name] {
		return "", false
	}
	s, ok := m.lookup(ctx, name)
	if !ok {
		return "", false
	}
	return s.Path, true
}

// lookup checks the cached scan first and rescans on a miss.
func (m *Manager) lookup(ctx context.Context, name string) (types.Script, bool) {
	m.mu.Lock()
	s, ok := m.scripts[name]
	m.mu.Unlock()
	if ok {
		return s, true
	}
	if _, err := m.Scan(ctx); err != nil {
		return types.Script{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.scripts[name]
	return s, ok
}

func (m *Manager) enabledMap(ctx context.Context) (map[string]bool, error) {
	raw, err := m.settings.GetSetting(ctx, enableKey)
	if errors.Is(err, store.ErrNotFound) || raw == "" {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	enabled := map[string]bool{}
	if err := json.Unmarshal([]byte(raw), &enabled); err != nil {
		m.log.Warn("discarding corrupt enable map", zap.Error(err))
		return map[string]bool{}, nil
	}
	return enabled, nil
}

func (m *Manager) setEnabled(ctx context.Context, name string, on bool) error {
	enabled, err := m.enabledMap(ctx)
	if err != nil {
		return err
	}
	enabled[name] = on
	data, err := json.Marshal(enabled)
	if err != nil {
		return err
	}
	if err := m.settings.SetSetting(ctx, enableKey, string(data)); err != nil {
		return fmt.Errorf("save enable map: %w", err)
	}

	m.mu.Lock()
	if s, ok := m.scripts[name]; ok {
		s.Enabled = on
		m.scripts[name] = s
	}
	m.mu.Unlock()
	return nil
}

// ValidateName rejects empty names, path separators and "..".
func ValidateName(name string) error {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") ||
		strings.ContainsAny(name, " \t\n'\"`$\\") {
		return ErrInvalidName
	}
	return nil
}

// WriteCommand builds a quoted heredoc that writes content to path and marks
// it executable. The delimiter is chosen so no content line can end it.
func WriteCommand(path, content string) string {
	delim := "PENTOOLS_EOF"
	for strings.Contains(content, delim) {
		delim += "_"
	}
	q := shell.Quote(path)
	return fmt.Sprintf("cat <<'%s' > %s && chmod +x %s\n%s\n%s",
		delim, q, q, strings.TrimRight(content, "\n"), delim)
}
