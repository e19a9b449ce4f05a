package filemanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/penosext/pentools/internal/listing"
	"github.com/penosext/pentools/internal/metrics"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
)

// ValidateName rejects names that are empty, contain a slash or a control
// character, or refer to the directory itself or its parent.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case strings.Contains(name, "/"):
		return fmt.Errorf("%w: name must not contain /", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	case strings.ContainsAny(name, "\x00\n\r"):
		return fmt.Errorf("%w: name contains control characters", ErrInvalidName)
	}
	return nil
}

// CreateFile creates an empty file in the current directory.
func (m *Manager) CreateFile(ctx context.Context, name string) (*types.DirListing, error) {
	return m.mutate(ctx, "create_file", name, func(path string) (string, error) {
		return "touch " + shell.Quote(path), nil
	})
}

// CreateDir creates a directory in the current directory.
func (m *Manager) CreateDir(ctx context.Context, name string) (*types.DirListing, error) {
	return m.mutate(ctx, "create_dir", name, func(path string) (string, error) {
		return "mkdir -p " + shell.Quote(path), nil
	})
}

// Delete removes the named entry, recursively for directories.
func (m *Manager) Delete(ctx context.Context, name string) (*types.DirListing, error) {
	return m.mutate(ctx, "delete", name, func(path string) (string, error) {
		entry, ok := m.lookup(name)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if entry.IsDir() {
			return "rm -rf " + shell.Quote(path), nil
		}
		return "rm " + shell.Quote(path), nil
	})
}

// Rename renames the named entry within the current directory.
func (m *Manager) Rename(ctx context.Context, oldName, newName string) (*types.DirListing, error) {
	if err := ValidateName(newName); err != nil {
		return nil, err
	}
	if newName == oldName {
		return nil, fmt.Errorf("%w: name unchanged", ErrInvalidName)
	}
	return m.mutate(ctx, "rename", oldName, func(path string) (string, error) {
		if _, ok := m.lookup(oldName); !ok {
			return "", fmt.Errorf("%w: %s", ErrNotFound, oldName)
		}
		target := listing.JoinPath(listing.ParentPath(path), newName)
		return "mv " + shell.Quote(path) + " " + shell.Quote(target), nil
	})
}

// mutate validates name and the writable root, runs the command built by
// build and reloads the directory.
func (m *Manager) mutate(ctx context.Context, op, name string, build func(path string) (string, error)) (res *types.DirListing, err error) {
	defer func() { metrics.RecordFileOp(op, err) }()

	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	cwd := m.Cwd()
	path := listing.JoinPath(cwd, name)
	if !listing.Within(cwd, m.root) || !listing.Within(path, m.root) || path == m.root {
		return nil, fmt.Errorf("%w: %s", ErrPermission, path)
	}

	cmd, err := build(path)
	if err != nil {
		return nil, err
	}
	if _, err := m.sh.Exec(ctx, cmd); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, name, err)
	}
	return m.load(ctx)
}
