package filemanager

import (
	"context"
	"errors"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"notes.txt", true},
		{"my file", true},
		{"", false},
		{"   ", false},
		{"a/b", false},
		{".", false},
		{"..", false},
		{"bad\nname", false},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateName(%q) = %v, want valid=%v", tt.name, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error does not wrap ErrInvalidName", tt.name)
		}
	}
}

func TestMutations(t *testing.T) {
	m, f, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.ChangeDir(ctx, "/userdisk"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{"create file", func() error { _, err := m.CreateFile(ctx, "new.txt"); return err }, "touch '/userdisk/new.txt'"},
		{"create dir", func() error { _, err := m.CreateDir(ctx, "docs"); return err }, "mkdir -p '/userdisk/docs'"},
		{"delete file", func() error { _, err := m.Delete(ctx, "app.amr"); return err }, "rm '/userdisk/app.amr'"},
		{"delete dir", func() error { _, err := m.Delete(ctx, "paper"); return err }, "rm -rf '/userdisk/paper'"},
		{"rename", func() error { _, err := m.Rename(ctx, "Notes.txt", "notes v2.txt"); return err }, "mv '/userdisk/Notes.txt' '/userdisk/notes v2.txt'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err != nil {
				t.Fatalf("error: %v", err)
			}
			if !f.Called(tt.want) {
				t.Errorf("expected %q in calls %v", tt.want, f.Calls())
			}
		})
	}
}

func TestMutations_Rejected(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.On("ls -la /", "drwxr-xr-x 2 root root 4096 Jan  1  2023 etc\n")
	ctx := context.Background()
	if _, err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := m.CreateFile(ctx, "x"); !errors.Is(err, ErrPermission) {
		t.Errorf("expected ErrPermission at /, got %v", err)
	}
	if _, err := m.Delete(ctx, "etc"); !errors.Is(err, ErrPermission) {
		t.Errorf("expected ErrPermission deleting /etc, got %v", err)
	}

	m.ChangeDir(ctx, "/userdisk")
	calls := len(f.Calls())
	if _, err := m.CreateDir(ctx, "a/b"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
	if _, err := m.Rename(ctx, "Notes.txt", "Notes.txt"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for unchanged rename, got %v", err)
	}
	if _, err := m.Delete(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(f.Calls()) != calls {
		t.Errorf("rejected mutations must not exec, got %v", f.Calls()[calls:])
	}
}
