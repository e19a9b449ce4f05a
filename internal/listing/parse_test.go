package listing

import (
	"testing"
	"time"

	"github.com/penosext/pentools/pkg/types"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		dir      string
		wantOK   bool
		wantName string
		wantType types.EntryType
		wantSize int64
		wantPath string
	}{
		{
			name:     "regular file",
			line:     "-rw-r--r--  1 root root 1024 Jan 15 10:30 file.txt",
			dir:      "/userdisk",
			wantOK:   true,
			wantName: "file.txt",
			wantType: types.EntryFile,
			wantSize: 1024,
			wantPath: "/userdisk/file.txt",
		},
		{
			name:     "directory at root",
			line:     "drwxr-xr-x    2 root     root          4096 Dec 25  2022 etc",
			dir:      "/",
			wantOK:   true,
			wantName: "etc",
			wantType: types.EntryDirectory,
			wantSize: 4096,
			wantPath: "/etc",
		},
		{
			name:     "name with spaces",
			line:     "-rw-r--r-- 1 root root 12 Feb  3 09:00 my notes  v2.txt",
			dir:      "/userdisk/docs",
			wantOK:   true,
			wantName: "my notes  v2.txt",
			wantType: types.EntryFile,
			wantSize: 12,
			wantPath: "/userdisk/docs/my notes  v2.txt",
		},
		{
			name:     "symlink",
			line:     "lrwxrwxrwx 1 root root 7 Jan  1 00:00 sh -> busybox",
			dir:      "/bin",
			wantOK:   true,
			wantName: "sh",
			wantType: types.EntryLink,
			wantSize: 7,
			wantPath: "/bin/sh",
		},
		{
			name:     "character device",
			line:     "crw-rw-rw- 1 root root 1, 3 Jan  1 00:00 null",
			dir:      "/dev",
			wantOK:   true,
			wantName: "null",
			wantType: types.EntryUnknown,
			wantSize: 3,
			wantPath: "/dev/null",
		},
		{
			name:     "busybox without group",
			line:     "-rwxr-xr-x 1 0 523 Mar  9 08:15 run.sh",
			dir:      "/userdisk",
			wantOK:   true,
			wantName: "run.sh",
			wantType: types.EntryFile,
			wantSize: 523,
			wantPath: "/userdisk/run.sh",
		},
		{
			name:     "iso time style",
			line:     "-rw-r--r-- 1 root root 2048 2023-06-01 14:22:05.000000000 +0800 data.bin",
			dir:      "/userdisk",
			wantOK:   true,
			wantName: "data.bin",
			wantType: types.EntryFile,
			wantSize: 2048,
			wantPath: "/userdisk/data.bin",
		},
		{
			name:     "no date columns",
			line:     "-rw-r--r-- 1 root root 99 weird",
			dir:      "/tmp",
			wantOK:   true,
			wantName: "weird",
			wantType: types.EntryFile,
			wantSize: 99,
			wantPath: "/tmp/weird",
		},
		{
			name:     "unstatable file",
			line:     "-????????? ? ?    ?       ?            ? broken.txt",
			dir:      "/userdisk",
			wantOK:   true,
			wantName: "broken.txt",
			wantType: types.EntryFile,
			wantPath: "/userdisk/broken.txt",
		},
		{
			name:     "unstatable directory",
			line:     "d????????? ? ? ? ? ? locked",
			dir:      "/",
			wantOK:   true,
			wantName: "locked",
			wantType: types.EntryDirectory,
			wantPath: "/locked",
		},
		{
			name:     "unrecognized type char",
			line:     "xrw-r--r-- 1 root root 1024 Jan 15 10:30 file.txt",
			dir:      "/",
			wantOK:   true,
			wantName: "file.txt",
			wantType: types.EntryUnknown,
			wantSize: 1024,
			wantPath: "/file.txt",
		},
		{
			name:     "tab before name kept",
			line:     "-rw-r--r-- 1 root root 5 Jan 15 10:30 a\tb",
			dir:      "/",
			wantOK:   true,
			wantName: "a\tb",
			wantType: types.EntryFile,
			wantSize: 5,
			wantPath: "/a\tb",
		},
		{name: "total header", line: "total 24", dir: "/"},
		{name: "blank", line: "   ", dir: "/"},
		{name: "dot", line: "drwxr-xr-x 2 root root 4096 Jan 15 10:30 .", dir: "/"},
		{name: "dotdot", line: "drwxr-xr-x 2 root root 4096 Jan 15 10:30 ..", dir: "/"},
		{name: "garbage", line: "ls: cannot access: No such file", dir: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := ParseLine(tt.line, tt.dir, testNow)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine ok = %v, want %v (entry %+v)", ok, tt.wantOK, entry)
			}
			if !ok {
				return
			}
			if entry.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", entry.Name, tt.wantName)
			}
			if entry.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", entry.Type, tt.wantType)
			}
			if entry.Size != tt.wantSize {
				t.Errorf("Size = %d, want %d", entry.Size, tt.wantSize)
			}
			if entry.FullPath != tt.wantPath {
				t.Errorf("FullPath = %q, want %q", entry.FullPath, tt.wantPath)
			}
		})
	}
}

func TestParseLine_Fields(t *testing.T) {
	entry, ok := ParseLine("-rw-r--r-- 1 root root 1024 Jan 15 10:30 file.txt", "/userdisk", testNow)
	if !ok {
		t.Fatal("expected entry")
	}
	if entry.SizeFormatted != "1.0 KB" {
		t.Errorf("SizeFormatted = %q", entry.SizeFormatted)
	}
	if entry.IsHidden || entry.IsExecutable {
		t.Errorf("unexpected flags hidden=%v exec=%v", entry.IsHidden, entry.IsExecutable)
	}
	want := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC).Unix()
	if entry.ModifiedTime != want {
		t.Errorf("ModifiedTime = %d, want %d", entry.ModifiedTime, want)
	}
	if entry.ModifiedTimeFormatted != "2024-01-15 10:30" {
		t.Errorf("ModifiedTimeFormatted = %q", entry.ModifiedTimeFormatted)
	}

	hidden, ok := ParseLine("-rwxr-xr-x 1 root root 10 Jan 15 10:30 .profile", "/root", testNow)
	if !ok || !hidden.IsHidden || !hidden.IsExecutable {
		t.Errorf("expected hidden executable entry, got %+v", hidden)
	}

	dir, _ := ParseLine("drwxr-xr-x 2 root root 4096 Jan 15 10:30 bin", "/", testNow)
	if dir.SizeFormatted != "<DIR>" {
		t.Errorf("directory SizeFormatted = %q", dir.SizeFormatted)
	}

	link, _ := ParseLine("lrwxrwxrwx 1 root root 7 Jan  1 00:00 sh -> busybox", "/bin", testNow)
	if link.LinkTarget != "busybox" {
		t.Errorf("LinkTarget = %q", link.LinkTarget)
	}
}

func TestParseLine_Timestamps(t *testing.T) {
	tests := []struct {
		name string
		line string
		want time.Time
	}{
		{
			name: "clock in the past uses current year",
			line: "-rw-r--r-- 1 root root 1 Mar  9 08:15 a",
			want: time.Date(2024, time.March, 9, 8, 15, 0, 0, time.UTC),
		},
		{
			name: "clock in the future rolls back a year",
			line: "-rw-r--r-- 1 root root 1 Dec 20 08:15 a",
			want: time.Date(2023, time.December, 20, 8, 15, 0, 0, time.UTC),
		},
		{
			name: "year form is midnight",
			line: "-rw-r--r-- 1 root root 1 Jun  2  2019 a",
			want: time.Date(2019, time.June, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "iso with zone",
			line: "-rw-r--r-- 1 root root 1 2023-06-01 14:22:05.000000000 +0800 a",
			want: time.Date(2023, time.June, 1, 6, 22, 5, 0, time.UTC),
		},
		{
			name: "missing date falls back to now",
			line: "-rw-r--r-- 1 root root 1 a",
			want: testNow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := ParseLine(tt.line, "/", testNow)
			if !ok {
				t.Fatal("expected entry")
			}
			if entry.ModifiedTime != tt.want.Unix() {
				t.Errorf("ModifiedTime = %s, want %s",
					time.Unix(entry.ModifiedTime, 0).UTC(), tt.want)
			}
		})
	}
}

func TestParseListing(t *testing.T) {
	output := `total 16
drwxr-xr-x    4 root     root          4096 Mar  9 08:15 .
drwxr-xr-x   18 root     root          4096 Jan  1  2023 ..
drwxr-xr-x    2 root     root          4096 Mar  9 08:15 paper
-rw-r--r--    1 root     root          1024 Jan 15 10:30 file.txt
-rw-r--r--    1 root     root             0 Jan 15 10:30 .hidden
`
	entries := ParseListing(output, "/userdisk", testNow)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
	names := []string{entries[0].Name, entries[1].Name, entries[2].Name}
	want := []string{"paper", "file.txt", ".hidden"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
	if entries[2].SizeFormatted != "0 B" {
		t.Errorf("empty file SizeFormatted = %q", entries[2].SizeFormatted)
	}
}

func TestParseLine_NeverPanics(t *testing.T) {
	inputs := []string{
		"", "-", "d", "l a b c d e", "-rw 1 2 3 4 Jan", "-rw 1 2 3 Jan 99 10:00 x",
		"-rw-r--r-- 1 root root 1 Jan 15 10:30", "drwx 1 a b 2023-01-01 10:00",
		"-rw 1 a b 99999999999999999999 Jan 1 2020 big",
	}
	for _, in := range inputs {
		ParseLine(in, "/", testNow)
	}
}
