package listing

import (
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, time.January, 15, 10, 30, 59, 0, time.UTC).Unix()
	if got := FormatTime(ts, time.UTC); got != "2024-01-15 10:30" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		fn   func(string, string) string
		a, b string
		want string
	}{
		{JoinPath, "/", "etc", "/etc"},
		{JoinPath, "/userdisk", "a.txt", "/userdisk/a.txt"},
		{JoinPath, "/userdisk", "/etc/passwd", "/etc/passwd"},
		{JoinPath, "/userdisk/a", "../b", "/userdisk/b"},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.a, tt.b); got != tt.want {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}

	norm := map[string]string{
		"":           "/",
		"/":          "/",
		"userdisk":   "/userdisk",
		"/userdisk/": "/userdisk",
		"/a//b/./c/": "/a/b/c",
	}
	for in, want := range norm {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}

	parents := map[string]string{"/": "/", "/userdisk": "/", "/userdisk/paper": "/userdisk"}
	for in, want := range parents {
		if got := ParentPath(in); got != want {
			t.Errorf("ParentPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		p    string
		want bool
	}{
		{"/userdisk", true},
		{"/userdisk/a/b", true},
		{"/userdisk2", false},
		{"/etc", false},
		{"/userdisk/../etc", false},
	}
	for _, tt := range tests {
		if got := Within(tt.p, "/userdisk"); got != tt.want {
			t.Errorf("Within(%q) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestIsTextFile(t *testing.T) {
	if !IsTextFile("notes.TXT") || !IsTextFile("run.sh") {
		t.Error("expected text files")
	}
	if IsTextFile("app.amr") || IsTextFile("photo.png") {
		t.Error("expected non-text files")
	}
}
