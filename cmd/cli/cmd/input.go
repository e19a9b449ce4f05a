package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

var errInterrupted = errors.New("interrupted")

// input owns stdin. One goroutine reads it so the REPL, password prompts
// and the editor PTY can take turns without a reader left behind.
type input struct {
	file    *os.File
	chunks  chan []byte
	pending []byte
}

func newInput(f *os.File) *input {
	in := &input{file: f, chunks: make(chan []byte)}
	go func() {
		defer close(in.chunks)
		buf := make([]byte, 1024)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				in.chunks <- chunk
			}
			if err != nil {
				return
			}
		}
	}()
	return in
}

func (in *input) isTerminal() bool {
	return term.IsTerminal(int(in.file.Fd()))
}

// next returns buffered bytes first, then the next chunk from stdin.
func (in *input) next() ([]byte, bool) {
	if len(in.pending) > 0 {
		b := in.pending
		in.pending = nil
		return b, true
	}
	b, ok := <-in.chunks
	return b, ok
}

// ReadLine returns one line without its terminator.
func (in *input) ReadLine() (string, error) {
	var line []byte
	for {
		chunk, ok := in.next()
		if !ok {
			if len(line) > 0 {
				return string(line), nil
			}
			return "", io.EOF
		}
		if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
			line = append(line, chunk[:i]...)
			in.pending = chunk[i+1:]
			return string(bytes.TrimRight(line, "\r")), nil
		}
		line = append(line, chunk...)
	}
}

// ReadSecret reads a line with echo off. Outside a terminal it falls back to
// ReadLine.
func (in *input) ReadSecret(out io.Writer) (string, error) {
	if !in.isTerminal() {
		return in.ReadLine()
	}
	fd := int(in.file.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(fd, oldState)

	var secret []byte
	for {
		chunk, ok := in.next()
		if !ok {
			return "", io.EOF
		}
		for i, b := range chunk {
			switch b {
			case '\r', '\n':
				in.pending = chunk[i+1:]
				io.WriteString(out, "\r\n")
				return string(secret), nil
			case 3: // Ctrl-C
				io.WriteString(out, "\r\n")
				return "", errInterrupted
			case 127, 8:
				if len(secret) > 0 {
					secret = secret[:len(secret)-1]
				}
			default:
				secret = append(secret, b)
			}
		}
	}
}

// pipeTo forwards stdin to w until done is closed.
func (in *input) pipeTo(w io.Writer, done <-chan struct{}) {
	if len(in.pending) > 0 {
		w.Write(in.pending)
		in.pending = nil
	}
	for {
		select {
		case <-done:
			return
		case chunk, ok := <-in.chunks:
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}
}
