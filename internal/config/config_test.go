package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/jdb/internal/testutil"
)

func TestConfigParsing(t *testing.T) {
	configContent := `# Global options
log.level debug
prompt (jdb)

[debug]
fault-policy abort

[version]
format json`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if value, ok := config.GetGlobalOption("log.level"); !ok || value != "debug" {
		t.Errorf("Expected log.level=debug, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetGlobalOption("prompt"); !ok || value != "(jdb)" {
		t.Errorf("Expected prompt=(jdb), got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("debug", "fault-policy"); !ok || value != "abort" {
		t.Errorf("Expected debug.fault-policy=abort, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("debug", "prompt"); !ok || value != "(jdb)" {
		t.Errorf("Expected debug.prompt=(jdb) (fallback), got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("nonexistent", "option"); ok {
		t.Errorf("Expected nonexistent option to not exist, but got %s", value)
	}
	if config.HasWarnings() {
		t.Errorf("Expected no warnings, got %v", config.Warnings)
	}
}

func TestEmptyConfig(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}
	if len(config.Global) != 0 || len(config.Commands) != 0 {
		t.Errorf("Expected empty config, got %v %v", config.Global, config.Commands)
	}
}

func TestConfigValueKeepsInnerSpaces(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("prompt   jdb  >  \n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if v := config.GetString("prompt"); v != "jdb  >" {
		t.Errorf("Expected %q, got %q", "jdb  >", v)
	}
}

func TestConfigWarnings(t *testing.T) {
	configContent := `colour auto
log.max-files many
fault-policy retry

[debug]
history 100`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	want := []string{
		`global option "fault-policy": expected one of proceed|abort, got "retry"`,
		`global option "log.max-files": expected int, got "many"`,
		`unknown global option: "colour" (value: "auto")`,
		`unknown option for command "debug": "history" (value: "100")`,
	}
	if len(config.Warnings) != len(want) {
		t.Fatalf("Expected %d warnings, got %d: %v", len(want), len(config.Warnings), config.Warnings)
	}
	for i := range want {
		if config.Warnings[i] != want[i] {
			t.Errorf("warning %d: expected %q, got %q", i, want[i], config.Warnings[i])
		}
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadFromPath returned error: %v", err)
	}
	if len(cfg.Global) != 0 {
		t.Fatalf("expected empty config, got %v", cfg.Global)
	}
}

func TestLoadFromPathRejectsSymlink(t *testing.T) {
	testutil.SkipIfWindows(t, "symlinks need elevated privileges")
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, []byte("prompt x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "config")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromPath(link)
	if err == nil || !strings.Contains(err.Error(), "symlink not allowed") {
		t.Fatalf("expected symlink rejection, got %v", err)
	}
}

func TestSetCommandOption(t *testing.T) {
	cfg := NewConfig()
	cfg.SetGlobalOption("prompt", "a")
	cfg.SetCommandOption("debug", "prompt", "b")

	if v, _ := cfg.GetCommandOption("debug", "prompt"); v != "b" {
		t.Errorf("expected command value, got %q", v)
	}
	if v, _ := cfg.GetCommandOption("version", "prompt"); v != "a" {
		t.Errorf("expected global fallback, got %q", v)
	}
}

func TestLoadFromPathUnreadable(t *testing.T) {
	testutil.SkipIfWindows(t, "relies on unix permissions")
	testutil.SkipIfRoot(t, "chmod does not restrict root")

	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("prompt x\n"), 0o000); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "failed to open config file") {
		t.Fatalf("expected open failure, got %v", err)
	}
}

func TestConfigEmptySectionHeader(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("[]\nprompt x\n\n[ ]\nlog.level info\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	want := []string{
		"line 1: empty section header, options return to the global section",
		"line 4: empty section header, options return to the global section",
	}
	if len(config.Warnings) != len(want) {
		t.Fatalf("Expected %d warnings, got %v", len(want), config.Warnings)
	}
	for i := range want {
		if config.Warnings[i] != want[i] {
			t.Errorf("warning %d: expected %q, got %q", i, want[i], config.Warnings[i])
		}
	}
	if v, _ := config.GetGlobalOption("prompt"); v != "x" {
		t.Errorf("expected prompt=x, got %q", v)
	}
	if v, _ := config.GetGlobalOption("log.level"); v != "info" {
		t.Errorf("expected log.level=info, got %q", v)
	}
	if len(config.Commands) != 0 {
		t.Errorf("expected no command sections, got %v", config.Commands)
	}
}
