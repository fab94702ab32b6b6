package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

const megabyte = 1 << 20

// RotatingFile is an append-only log file that rolls over once it would grow
// past a size limit. The live file is renamed to <path>.1, older backups move
// up by one, and anything numbered above the retention count is removed.
//
// Safe for concurrent use.
type RotatingFile struct {
	mu    sync.Mutex
	path  string
	limit int64
	keep  int
	size  int64
	file  *os.File
}

// OpenRotating opens (or creates) path for appending. maxSizeMB is clamped to
// at least 1 and keep to at least 0; keep == 0 discards the old file on
// rollover instead of keeping a backup.
func OpenRotating(path string, maxSizeMB, keep int) (*RotatingFile, error) {
	maxSizeMB = max(maxSizeMB, 1)
	keep = max(keep, 0)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: mkdir %s: %w", dir, err)
		}
	}

	f, size, err := openAppend(path)
	if err != nil {
		return nil, err
	}

	return &RotatingFile{
		path:  path,
		limit: int64(maxSizeMB) * megabyte,
		keep:  keep,
		size:  size,
		file:  f,
	}, nil
}

func openAppend(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, 0, fmt.Errorf("logging: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("logging: stat %s: %w", path, err)
	}
	return f, info.Size(), nil
}

// Write appends p, rolling the file over first if p would not fit. A record
// is never split between two files; an oversized record gets a fresh file
// to itself.
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.size > 0 && w.size+int64(len(p)) > w.limit {
		if err := w.rollover(); err != nil {
			return 0, fmt.Errorf("logging: rotate %s: %w", w.path, err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the live file. Further writes fail with os.ErrClosed.
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rollover must be called with mu held.
func (w *RotatingFile) rollover() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	backups := w.backups()
	slices.Reverse(backups)
	for _, n := range backups {
		if n >= w.keep {
			_ = os.Remove(w.backup(n))
			continue
		}
		_ = os.Rename(w.backup(n), w.backup(n+1))
	}

	if w.keep > 0 {
		_ = os.Rename(w.path, w.backup(1))
	} else {
		_ = os.Remove(w.path)
	}

	f, size, err := openAppend(w.path)
	if err != nil {
		return err
	}
	w.file = f
	w.size = size
	return nil
}

func (w *RotatingFile) backup(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// backups lists the numeric suffixes of existing backups, ascending.
func (w *RotatingFile) backups() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var out []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n >= 1 {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

var _ io.WriteCloser = (*RotatingFile)(nil)
