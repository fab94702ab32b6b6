package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SetKeyInFile updates or adds a global option in the config file at path,
// preserving comments and layout. An existing global line for key is
// replaced in place; otherwise the line is inserted before the first
// section header, or appended. Keys inside [section] blocks never match.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	newLine := key
	if value != "" {
		newLine += " " + value
	}

	insertAt := len(lines)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			insertAt = i
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = newLine
			return writeLines(path, lines)
		}
	}

	switch {
	case insertAt < len(lines):
		lines = append(lines[:insertAt], append([]string{newLine}, lines[insertAt:]...)...)
	case len(lines) > 0 && lines[len(lines)-1] == "":
		lines = append(lines[:len(lines)-1], newLine, "")
	default:
		lines = append(lines, newLine)
	}

	return writeLines(path, lines)
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
