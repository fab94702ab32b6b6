package testutil

import (
	"os"
	"runtime"
	"testing"
)

// Platform describes the environment a test runs in.
type Platform struct {
	IsWindows bool
	// IsRoot is true when chmod restrictions do not apply to the test.
	IsRoot bool
}

// DetectPlatform inspects the current runtime environment.
func DetectPlatform(t *testing.T) Platform {
	t.Helper()
	return Platform{
		IsWindows: runtime.GOOS == "windows",
		IsRoot:    runtime.GOOS != "windows" && os.Geteuid() == 0,
	}
}

// SkipIfRoot skips tests that simulate failures with file permissions.
func SkipIfRoot(t *testing.T, reason string) {
	t.Helper()
	if DetectPlatform(t).IsRoot {
		t.Skipf("Skipping test - %s (running as root)", reason)
	}
}

// SkipIfWindows skips Unix-only tests.
func SkipIfWindows(t *testing.T, reason string) {
	t.Helper()
	if DetectPlatform(t).IsWindows {
		t.Skipf("Skipping test - %s (Windows platform detected)", reason)
	}
}
