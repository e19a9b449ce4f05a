package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pentools.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPath: path}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	t.Cleanup(func() { Set(zap.NewNop()) })

	Named("terminal").Info("shell ready", zap.String("cwd", "/"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", data)
	}
	if entry["msg"] != "shell ready" || entry["logger"] != "terminal" || entry["cwd"] != "/" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pentools.log")
	if err := Init(Config{Level: "info", OutputPath: path}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		SetLevel("info")
		Set(zap.NewNop())
	})

	Debug("hidden")
	SetLevel("debug")
	Debug("visible")
	SetLevel("not-a-level")
	Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "visible") {
		t.Errorf("unexpected log output: %q", data)
	}
}
