// Package prompt asks the user for a single line of input.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCancelled is returned when the prompt is abandoned.
var ErrCancelled = errors.New("prompt cancelled")

// Request describes one prompt. Validate returns a message for invalid
// input, or "" when the value is accepted.
type Request struct {
	Label    string
	Initial  string
	Validate func(string) string
}

// Prompter collects one value from the user.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (string, error)
}

// LinePrompter reads answers line by line from in and writes prompts to out.
type LinePrompter struct {
	out   io.Writer
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewLinePrompter starts reading lines from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	p := &LinePrompter{out: out, lines: make(chan lineResult)}
	go p.read(in)
	return p
}

func (p *LinePrompter) read(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		p.lines <- lineResult{text: scanner.Text()}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	p.lines <- lineResult{err: err}
	close(p.lines)
}

// Prompt prints the label, reads a line and re-prompts with the validation
// message until the answer is accepted. An empty answer keeps Initial.
func (p *LinePrompter) Prompt(ctx context.Context, req Request) (string, error) {
	for {
		if req.Initial != "" {
			fmt.Fprintf(p.out, "%s [%s]: ", req.Label, req.Initial)
		} else {
			fmt.Fprintf(p.out, "%s: ", req.Label)
		}

		var res lineResult
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return "", ErrCancelled
		case res, ok = <-p.lines:
		}
		if !ok || res.err != nil {
			fmt.Fprintln(p.out)
			return "", ErrCancelled
		}

		value := strings.TrimRight(res.text, "\r")
		if value == "" {
			value = req.Initial
		}
		if req.Validate != nil {
			if msg := req.Validate(value); msg != "" {
				fmt.Fprintln(p.out, msg)
				continue
			}
		}
		return value, nil
	}
}

// NotEmpty is a validator that rejects blank input.
func NotEmpty(field string) func(string) string {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return field + " cannot be empty"
		}
		return ""
	}
}
