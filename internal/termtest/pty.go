//go:build unix

// Package termtest drives code that expects a real terminal through a
// pseudo-terminal pair: the code under test gets the slave side, the test
// types into and reads from the master side.
package termtest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/joeycumines/jdb/internal/testutil"
)

// PTY is an open pseudo-terminal pair with captured output.
type PTY struct {
	ptm *os.File
	pts *os.File

	mu     sync.Mutex
	output strings.Builder
	closed bool
	done   chan struct{}
}

// Open creates a PTY sized 80x24 and closes it when the test ends. The test
// is skipped when the platform cannot allocate one.
func Open(t *testing.T) *PTY {
	t.Helper()
	ptm, pts, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	_ = pty.Setsize(ptm, &pty.Winsize{Rows: 24, Cols: 80})

	p := &PTY{ptm: ptm, pts: pts, done: make(chan struct{})}
	go p.readOutput()
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// Terminal returns the slave side, to be handed to the code under test as
// its input and output.
func (p *PTY) Terminal() *os.File {
	return p.pts
}

// Type writes input to the terminal as if typed, one rune at a time.
func (p *PTY) Type(input string) error {
	for _, r := range input {
		if _, err := p.ptm.WriteString(string(r)); err != nil {
			return fmt.Errorf("failed to write input: %w", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	return nil
}

// SendLine types input followed by Enter.
func (p *PTY) SendLine(input string) error {
	if err := p.Type(input); err != nil {
		return err
	}
	return p.SendKeys("enter")
}

var keys = map[string]string{
	"ctrl-c":    "\x03",
	"ctrl-d":    "\x04",
	"enter":     "\r",
	"backspace": "\x7f",
	"up":        "\x1b[A",
	"down":      "\x1b[B",
	"right":     "\x1b[C",
	"left":      "\x1b[D",
}

// SendKeys sends a named key sequence.
func (p *PTY) SendKeys(name string) error {
	seq, ok := keys[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown key sequence: %s", name)
	}
	return p.Type(seq)
}

// Output returns everything the code under test has written so far.
func (p *PTY) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output.String()
}

// WaitForOutput waits until expected appears in the output after offset.
func (p *PTY) WaitForOutput(expected string, offset int, timeout time.Duration) error {
	_, err := testutil.WaitFor(context.Background(), p.Output, func(out string) bool {
		return offset <= len(out) && strings.Contains(out[offset:], expected)
	}, timeout, 5*time.Millisecond)
	if err != nil {
		return fmt.Errorf("expected %q in output: %w", expected, err)
	}
	return nil
}

// Close closes both sides and waits for the output reader to stop.
func (p *PTY) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	errPts := p.pts.Close()
	errPtm := p.ptm.Close()
	<-p.done
	if errPts != nil {
		return errPts
	}
	return errPtm
}

func (p *PTY) readOutput() {
	defer close(p.done)
	buf := make([]byte, 4096)
	for {
		n, err := p.ptm.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.output.Write(buf[:n])
			p.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}
