package types

// LineType tags a terminal line by its origin.
type LineType string

const (
	LineCommand  LineType = "command"
	LineOutput   LineType = "output"
	LineError    LineType = "error"
	LineSystem   LineType = "system"
	LinePassword LineType = "password"
)

// TerminalLine is one entry in the terminal scrollback.
type TerminalLine struct {
	ID        string   `json:"id"`
	Type      LineType `json:"type"`
	Content   string   `json:"content"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds
}

// CommandRequest is the request body for submitting terminal input.
type CommandRequest struct {
	Input string `json:"input"`
}

// CommandResult is the response for a terminal submission.
type CommandResult struct {
	Handled bool           `json:"handled"`
	Exit    bool           `json:"exit,omitempty"`
	Cwd     string         `json:"cwd"`
	Lines   []TerminalLine `json:"lines"`
}
