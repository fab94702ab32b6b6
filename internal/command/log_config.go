package command

import (
	"fmt"
	"strconv"

	"github.com/joeycumines/jdb/internal/config"
	"github.com/joeycumines/jdb/internal/logging"
)

// resolveLogOptions merges the log flags with the config. A non-empty flag
// wins; otherwise the schema order applies (environment, config file,
// default).
func resolveLogOptions(flagPath, flagLevel string, cfg *config.Config) (logging.Options, error) {
	schema := config.DefaultSchema()
	opts := logging.Options{
		File:  flagPath,
		Level: flagLevel,
	}

	if opts.Level == "" {
		opts.Level = schema.Resolve(cfg, "log.level")
	}
	if _, err := logging.ParseLevel(opts.Level); err != nil {
		return opts, err
	}

	if opts.File == "" {
		opts.File = schema.Resolve(cfg, "log.file")
	}

	var err error
	if opts.MaxSizeMB, err = resolveInt(schema, cfg, "log.max-size-mb"); err != nil {
		return opts, err
	}
	if opts.MaxFiles, err = resolveInt(schema, cfg, "log.max-files"); err != nil {
		return opts, err
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxFiles < 0 {
		opts.MaxFiles = 5
	}

	return opts, nil
}

func resolveInt(schema *config.ConfigSchema, cfg *config.Config, key string) (int, error) {
	v := schema.Resolve(cfg, key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
