package repl

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/term"
)

// LineReader reads one operator line. It returns io.EOF once the input is
// exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// NewLineReader returns a TerminalReader when in is a terminal, and a
// ScannerReader otherwise. Prompts are written to out.
func NewLineReader(in io.Reader, out io.Writer) LineReader {
	if f, ok := in.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		return NewTerminalReader(int(f.Fd()), in, out)
	}
	return NewScannerReader(in, out)
}

// ScannerReader reads newline-terminated lines from a plain stream.
type ScannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewScannerReader(in io.Reader, out io.Writer) *ScannerReader {
	return &ScannerReader{scanner: bufio.NewScanner(in), out: out}
}

func (r *ScannerReader) ReadLine(prompt string) (string, error) {
	if prompt != "" && r.out != nil {
		if _, err := io.WriteString(r.out, prompt); err != nil {
			return "", err
		}
	}
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// TerminalReader provides line editing on a terminal. The terminal is only in
// raw mode for the duration of a ReadLine, so script output between prompts is
// written normally.
type TerminalReader struct {
	fd   int
	term *term.Terminal
}

func NewTerminalReader(fd int, in io.Reader, out io.Writer) *TerminalReader {
	rw := struct {
		io.Reader
		io.Writer
	}{in, out}
	return &TerminalReader{fd: fd, term: term.NewTerminal(rw, "")}
}

// ReadLine returns io.EOF on Ctrl-D at an empty line and on Ctrl-C.
func (r *TerminalReader) ReadLine(prompt string) (string, error) {
	state, err := term.MakeRaw(r.fd)
	if err != nil {
		return "", fmt.Errorf("enter raw mode: %w", err)
	}
	defer func() { _ = term.Restore(r.fd, state) }()
	r.term.SetPrompt(prompt)
	return r.term.ReadLine()
}
