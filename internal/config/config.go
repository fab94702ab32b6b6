package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// Config holds jdb settings. Options outside any section are global;
// options under a "[name]" header apply to the command of that name.
type Config struct {
	Global   map[string]string
	Commands map[string]map[string]string
	// Warnings are the problems found while loading, in the order reported.
	Warnings []string
}

func NewConfig() *Config {
	return &Config{
		Global:   map[string]string{},
		Commands: map[string]map[string]string{},
	}
}

// Load reads the file named by GetConfigPath.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFromPath(path)
}

// LoadFromPath reads a config file. A missing file yields an empty config.
// The path itself must not be a symlink.
func LoadFromPath(path string) (*Config, error) {
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	case info.Mode()&fs.ModeSymlink != 0:
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses "name value" lines. The value is the rest of the
// line, trimmed. Lines starting with '#' are comments and "[command]"
// opens a command section.
func LoadFromReader(r io.Reader) (*Config, error) {
	c := NewConfig()
	section := c.Global

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		if header, ok := strings.CutPrefix(line, "["); ok && strings.HasSuffix(header, "]") {
			name := strings.TrimSpace(strings.TrimSuffix(header, "]"))
			if name == "" {
				c.addWarning("line %d: empty section header, options return to the global section", n)
				section = c.Global
				continue
			}
			if c.Commands[name] == nil {
				c.Commands[name] = map[string]string{}
			}
			section = c.Commands[name]
			continue
		}

		name, value, _ := strings.Cut(line, " ")
		section[name] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range ValidateConfig(c, DefaultSchema()) {
		c.addWarning("%s", issue)
	}
	return c, nil
}

func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("config: "+msg)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}

func (c *Config) GetGlobalOption(name string) (string, bool) {
	v, ok := c.Global[name]
	return v, ok
}

// GetCommandOption looks in the command's section first, then the global
// section.
func (c *Config) GetCommandOption(command, name string) (string, bool) {
	if v, ok := c.Commands[command][name]; ok {
		return v, true
	}
	return c.GetGlobalOption(name)
}

func (c *Config) SetGlobalOption(name, value string) { c.Global[name] = value }

func (c *Config) SetCommandOption(command, name, value string) {
	section := c.Commands[command]
	if section == nil {
		section = map[string]string{}
		c.Commands[command] = section
	}
	section[name] = value
}

func (c *Config) HasWarnings() bool { return len(c.Warnings) != 0 }
