package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/jdb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLogOptions_Defaults(t *testing.T) {
	t.Setenv("JDB_LOG_LEVEL", "")
	t.Setenv("JDB_LOG_FILE", "")

	opts, err := resolveLogOptions("", "", config.NewConfig())
	require.NoError(t, err)
	assert.Equal(t, "", opts.File)
	assert.Equal(t, "", opts.Level, "set but empty env resolves to the empty level")
	assert.Equal(t, 10, opts.MaxSizeMB)
	assert.Equal(t, 5, opts.MaxFiles)
}

func TestResolveLogOptions_SchemaDefaults(t *testing.T) {
	unsetenv(t, "JDB_LOG_LEVEL")
	unsetenv(t, "JDB_LOG_FILE")

	opts, err := resolveLogOptions("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", opts.Level)
	assert.Equal(t, "", opts.File)
	assert.Equal(t, 10, opts.MaxSizeMB)
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestResolveLogOptions_FlagOverridesConfig(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "jdb.log")
	t.Setenv("JDB_LOG_LEVEL", "error")

	cfg := config.NewConfig()
	cfg.SetGlobalOption("log.file", "/should/not/use/this")
	cfg.SetGlobalOption("log.max-size-mb", "2")
	cfg.SetGlobalOption("log.max-files", "0")

	opts, err := resolveLogOptions(logPath, "debug", cfg)
	require.NoError(t, err)
	assert.Equal(t, logPath, opts.File)
	assert.Equal(t, "debug", opts.Level)
	assert.Equal(t, 2, opts.MaxSizeMB)
	assert.Equal(t, 0, opts.MaxFiles)
}

func TestResolveLogOptions_EnvOverridesConfig(t *testing.T) {
	t.Setenv("JDB_LOG_LEVEL", "info")
	t.Setenv("JDB_LOG_FILE", "/tmp/from-env.log")

	cfg := config.NewConfig()
	cfg.SetGlobalOption("log.level", "error")
	cfg.SetGlobalOption("log.file", "/tmp/from-config.log")

	opts, err := resolveLogOptions("", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "info", opts.Level)
	assert.Equal(t, "/tmp/from-env.log", opts.File)
}

func TestResolveLogOptions_Invalid(t *testing.T) {
	t.Setenv("JDB_LOG_LEVEL", "")

	_, err := resolveLogOptions("", "chatty", config.NewConfig())
	assert.EqualError(t, err, "invalid log level: chatty")

	cfg := config.NewConfig()
	cfg.SetGlobalOption("log.max-files", "lots")
	_, err = resolveLogOptions("", "", cfg)
	assert.EqualError(t, err, `invalid log.max-files: "lots"`)
}
