package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/penosext/pentools/internal/shell/shelltest"
	"github.com/penosext/pentools/internal/terminal"
)

func TestRepl_ClearScreen(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		clears int
	}{
		{name: "clear command", input: "clear\n", clears: 1},
		{name: "reset command", input: "reset\n", clears: 1},
		{name: "password typed as clear", input: "passwd\nclear\n", clears: 0},
		{name: "password typed as reset", input: "passwd\nreset\n", clears: 0},
		{name: "plain command", input: "echo clear\n", clears: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := shelltest.New().On("pwd", "/\n")
			term := terminal.New(fake, terminal.Options{})
			ctx := context.Background()
			if err := term.Init(ctx); err != nil {
				t.Fatalf("Init() error: %v", err)
			}

			var out bytes.Buffer
			if err := repl(ctx, term, pipeInput(t, tt.input), &out); err != nil {
				t.Fatalf("repl() error: %v", err)
			}
			if n := strings.Count(out.String(), clearSequence); n != tt.clears {
				t.Errorf("clear sequences = %d, want %d", n, tt.clears)
			}
		})
	}
}

func TestClearsScreen(t *testing.T) {
	for line, want := range map[string]bool{
		"clear":    true,
		"  RESET ": true,
		"cleared":  false,
		"":         false,
	} {
		if got := clearsScreen(line); got != want {
			t.Errorf("clearsScreen(%q) = %v, want %v", line, got, want)
		}
	}
}
