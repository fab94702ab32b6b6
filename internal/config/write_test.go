package config

import (
	"os"
	"path/filepath"
	"testing"
)

func readConfig(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	return string(data)
}

func TestSetKeyInFile_NewKeyEmptyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config")

	if err := SetKeyInFile(path, "fault-policy", "abort"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	if got := readConfig(t, path); got != "fault-policy abort" {
		t.Fatalf("expected 'fault-policy abort', got %q", got)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath returned error: %v", err)
	}
	if v, ok := cfg.GetGlobalOption("fault-policy"); !ok || v != "abort" {
		t.Fatalf("expected fault-policy=abort after round-trip, got %q exists=%v", v, ok)
	}
}

func TestSetKeyInFile_AppendsKeepingTrailingNewline(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("# jdb\nlog.level info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := SetKeyInFile(path, "prompt", "jdb>"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	if got, want := readConfig(t, path), "# jdb\nlog.level info\nprompt jdb>\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetKeyInFile_ReplacesInPlace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("log.level info\n# keep\nprompt x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := SetKeyInFile(path, "log.level", "debug"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	if got, want := readConfig(t, path), "log.level debug\n# keep\nprompt x\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetKeyInFile_InsertsBeforeFirstSection(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("prompt x\n[version]\nformat json\nfault-policy abort\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := SetKeyInFile(path, "fault-policy", "proceed"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	want := "prompt x\nfault-policy proceed\n[version]\nformat json\nfault-policy abort\n"
	if got := readConfig(t, path); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetKeyInFile_EmptyValue(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("log.file /tmp/jdb.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := SetKeyInFile(path, "log.file", ""); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	if got := readConfig(t, path); got != "log.file\n" {
		t.Fatalf("expected bare key, got %q", got)
	}
}

func TestSetKeyInFile_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")

	for _, v := range []string{"a", "b", "c"} {
		if err := SetKeyInFile(path, "prompt", v); err != nil {
			t.Fatalf("SetKeyInFile returned error: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "config" {
		t.Fatalf("expected only the config file, got %v", entries)
	}
	if got := readConfig(t, path); got != "prompt c" {
		t.Fatalf("expected last value, got %q", got)
	}
}
