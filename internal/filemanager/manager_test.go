package filemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/penosext/pentools/internal/shell/shelltest"
	"github.com/penosext/pentools/pkg/types"
)

const userdiskListing = `total 20
drwxr-xr-x    4 root     root          4096 Mar  9 08:15 .
drwxr-xr-x   18 root     root          4096 Jan  1  2023 ..
-rw-r--r--    1 root     root          1024 Jan 15 10:30 Notes.txt
drwxr-xr-x    2 root     root          4096 Mar  9 08:15 paper
-rw-r--r--    1 root     root           100 Jan 15 10:30 app.amr
-rw-r--r--    1 root     root            10 Jan 15 10:30 .hidden
drwxr-xr-x    2 root     root          4096 Mar  9 08:15 Backup
`

type recordingEditor struct {
	path, returnDir string
}

func (e *recordingEditor) OpenEditor(ctx context.Context, path, returnDir string) error {
	e.path, e.returnDir = path, returnDir
	return nil
}

func newTestManager(t *testing.T) (*Manager, *shelltest.Fake, *recordingEditor) {
	t.Helper()
	f := shelltest.New()
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.On("cd '/userdisk' && ls -la", userdiskListing)
	ed := &recordingEditor{}
	m := New(f, "", ed)
	m.now = func() time.Time { return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return m, f, ed
}

func names(entries []types.FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestChangeDirAndEntries(t *testing.T) {
	m, _, _ := newTestManager(t)
	res, err := m.ChangeDir(context.Background(), "/userdisk/")
	if err != nil {
		t.Fatalf("ChangeDir() error: %v", err)
	}
	if res.Path != "/userdisk" {
		t.Errorf("Path = %q", res.Path)
	}
	if res.TotalFiles != 5 || res.TotalSize != 1134 {
		t.Errorf("stats = %d files, %d bytes", res.TotalFiles, res.TotalSize)
	}

	got := names(m.Entries(Filter{}))
	want := []string{"Backup", "paper", "app.amr", "Notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("Entries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entries()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if n := len(m.Entries(Filter{ShowHidden: true})); n != 5 {
		t.Errorf("ShowHidden entries = %d, want 5", n)
	}
	if got := names(m.Entries(Filter{Keyword: "NOTE"})); len(got) != 1 || got[0] != "Notes.txt" {
		t.Errorf("keyword filter = %v", got)
	}
}

func TestFilterEntries_KeepsListingConsistent(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.On("ls -la /", "drwxr-xr-x 2 root root 4096 Jan  1 00:00 etc\n")
	ctx := context.Background()

	res, err := m.ChangeDir(ctx, "/userdisk")
	if err != nil {
		t.Fatalf("ChangeDir() error: %v", err)
	}
	// Another request moves the manager before the first one filters.
	if _, err := m.ChangeDir(ctx, "/"); err != nil {
		t.Fatalf("ChangeDir(/) error: %v", err)
	}

	got := names(FilterEntries(res.Entries, Filter{}))
	want := []string{"Backup", "paper", "app.amr", "Notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("FilterEntries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FilterEntries()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if res.Entries[0].Name != "Notes.txt" {
		t.Errorf("FilterEntries must not reorder its input, first = %q", res.Entries[0].Name)
	}
}

func TestLoad_RootCommand(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.On("ls -la /", "drwxr-xr-x 2 root root 4096 Jan  1  2023 etc\n")
	res, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].FullPath != "/etc" {
		t.Errorf("unexpected entries: %+v", res.Entries)
	}
}

func TestLoad_StatFallback(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.OnError("cd '/data' && ls -la", "ls: unrecognized option: a", 1)
	f.On("cd '/data' && ls -1a", ".\n..\nlogs\nboot.img\n")
	f.On("stat -c '%s %Y %F' '/data/logs' 2>/dev/null", "4096 1700000000 directory\n")
	f.On("stat -c '%s %Y %F' '/data/boot.img' 2>/dev/null", "2048 1700000000 regular file\n")

	res, err := m.ChangeDir(context.Background(), "/data")
	if err != nil {
		t.Fatalf("ChangeDir() error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", res.Entries)
	}
	if res.Entries[0].Type != types.EntryDirectory || res.Entries[0].SizeFormatted != "<DIR>" {
		t.Errorf("unexpected dir entry: %+v", res.Entries[0])
	}
	if res.Entries[1].Size != 2048 || res.Entries[1].ModifiedTime != 1700000000 {
		t.Errorf("unexpected file entry: %+v", res.Entries[1])
	}
}

func TestLoad_FailureFallsBackToRoot(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.OnError("cd '/missing' && ls -la", "can't cd to /missing", 2)
	f.OnError("cd '/missing' && ls -1a", "can't cd to /missing", 2)

	if _, err := m.ChangeDir(context.Background(), "/missing"); err == nil {
		t.Fatal("expected error")
	}
	if m.Cwd() != "/" {
		t.Errorf("cwd = %q, want /", m.Cwd())
	}
}

func TestLoad_Busy(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.Gate = make(chan struct{})
	f.Started = make(chan string, 1)

	done := make(chan error, 1)
	go func() {
		_, err := m.ChangeDir(context.Background(), "/userdisk")
		done <- err
	}()
	<-f.Started

	if _, err := m.Load(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if _, err := m.CreateFile(context.Background(), "x.txt"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for mutation, got %v", err)
	}
	close(f.Gate)
	if err := <-done; err != nil {
		t.Fatalf("ChangeDir() error: %v", err)
	}
}

func TestGoUp(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.On("cd '/userdisk/paper' && ls -la", "total 0\n")
	ctx := context.Background()

	if _, err := m.ChangeDir(ctx, "/userdisk/paper"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GoUp(ctx); err != nil {
		t.Fatal(err)
	}
	if m.Cwd() != "/userdisk" {
		t.Errorf("cwd = %q", m.Cwd())
	}
}

func TestOpen(t *testing.T) {
	m, f, ed := newTestManager(t)
	f.On("cd '/userdisk/paper' && ls -la", "total 0\n")
	ctx := context.Background()
	m.ChangeDir(ctx, "/userdisk")

	if _, err := m.Open(ctx, "Notes.txt"); err != nil {
		t.Fatalf("Open(text) error: %v", err)
	}
	if ed.path != "/userdisk/Notes.txt" || ed.returnDir != "/userdisk" {
		t.Errorf("unexpected editor call: %+v", ed)
	}

	if _, err := m.Open(ctx, "app.amr"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if _, err := m.Open(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	res, err := m.Open(ctx, "paper")
	if err != nil || res == nil || res.Path != "/userdisk/paper" {
		t.Errorf("Open(dir) = %+v, %v", res, err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	m, f, _ := newTestManager(t)
	f.OnError("test -f '/userdisk/Notes.txt'", "", 1)
	m.ChangeDir(context.Background(), "/userdisk")

	if _, err := m.Open(context.Background(), "Notes.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
