package command

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"text/tabwriter"

	"github.com/joeycumines/jdb/internal/config"
)

// HelpCommand lists the registered commands, or describes one of them.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Show commands, or the flags of one command",
			"help [command | debugger]",
		),
		registry: registry,
	}
}

const helpHeader = `jdb - interactive JavaScript debugger

Usage: jdb <command> [options] [args...]
       jdb <script.js>

Available commands:
`

const helpFooter = `
Use 'jdb help <command>' to see the flags of a command.
Use 'jdb help debugger' for the commands accepted at the debugger prompt.
`

func (c *HelpCommand) Execute(args []string, stdout, stderr io.Writer) error {
	switch {
	case len(args) == 0:
		_, _ = io.WriteString(stdout, helpHeader)
		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()
		_, _ = io.WriteString(stdout, helpFooter)
		return nil
	case args[0] == "debugger":
		_, _ = io.WriteString(stdout, debuggerHelp)
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Usage: %s\n\n%s\n", cmd.Usage(), cmd.Description())

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetupFlags(fs)
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	first := true
	fs.VisitAll(func(f *flag.Flag) {
		if first {
			_, _ = fmt.Fprintln(w, "\nFlags:")
			first = false
		}
		if f.DefValue != "" && f.DefValue != "false" {
			_, _ = fmt.Fprintf(w, "  -%s\t%s (default %q)\n", f.Name, f.Usage, f.DefValue)
		} else {
			_, _ = fmt.Fprintf(w, "  -%s\t%s\n", f.Name, f.Usage)
		}
	})
	return w.Flush()
}

const debuggerHelp = `Debugger prompt commands:
  bt                       Print the call stack, innermost frame first
  p <name>                 Print a local variable
  l                        List the local variables
  n                        Step to the next statement
  c, r                     Continue until the next breakpoint
  q                        Abort the script
  bp <line> [col] [cond]   Set a breakpoint; col * or 0 matches any column
  lbp                      List breakpoints
  dbp <index>              Delete a breakpoint
  <expression>             Evaluate a JavaScript expression
`

// VersionCommand prints the jdb version, as text or JSON.
type VersionCommand struct {
	*BaseCommand
	version string
	config  *config.Config
	format  string
}

func NewVersionCommand(version string, cfg *config.Config) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Print the jdb version",
			"version [options]",
		),
		version: version,
		config:  cfg,
	}
}

// SetupFlags configures the flags for the version command.
func (c *VersionCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", "", "Output format (text, json)")
}

func (c *VersionCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := c.rejectArgs(args, stderr); err != nil {
		return err
	}
	format := c.format
	if format == "" {
		format = config.DefaultSchema().ResolveCommand(c.config, c.Name(), "format")
	}
	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		return enc.Encode(struct {
			Version string `json:"version"`
			Go      string `json:"go"`
		}{c.version, runtime.Version()})
	case "text", "":
		_, _ = fmt.Fprintf(stdout, "jdb version %s\n", c.version)
		return nil
	default:
		return fmt.Errorf("unknown version format: %s", format)
	}
}

// ConfigCommand shows and edits the configuration file.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	showGlobal bool
	showAll    bool
}

// NewConfigCommand returns the config command. set writes to configPath, or
// to the default location when configPath is empty.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Show, check and edit configuration",
			"config [-global|-all] [get <key> | set <key> <value> | validate | schema]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showGlobal, "global", false, "Print the global section of the config file")
	fs.BoolVar(&c.showAll, "all", false, "Print every section of the config file")
}

func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		if c.showGlobal || c.showAll {
			c.printFile(stdout)
			return nil
		}
		return c.printEffective(stdout)
	}

	verb, rest := args[0], args[1:]
	switch verb {
	case "get":
		if len(rest) != 1 {
			break
		}
		return c.get(rest[0], stdout)
	case "set":
		if len(rest) != 2 {
			break
		}
		return c.set(rest[0], rest[1], stdout)
	case "validate":
		if err := c.rejectArgs(rest, stderr); err != nil {
			return err
		}
		return c.validate(stdout)
	case "schema":
		if err := c.rejectArgs(rest, stderr); err != nil {
			return err
		}
		_, _ = fmt.Fprint(stdout, config.DefaultSchema().FormatHelp())
		return nil
	default:
		_, _ = fmt.Fprintf(stderr, "Usage: %s\n", c.Usage())
		return fmt.Errorf("unknown config subcommand: %s", verb)
	}
	_, _ = fmt.Fprintf(stderr, "Usage: %s\n", c.Usage())
	return fmt.Errorf("config %s: wrong number of arguments", verb)
}

// printEffective lists every global option with the value jdb would use and
// where it came from.
func (c *ConfigCommand) printEffective(stdout io.Writer) error {
	schema := config.DefaultSchema()
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	for _, opt := range schema.SectionOptions("") {
		source := "default"
		if _, ok := c.config.GetGlobalOption(opt.Key); ok {
			source = "file"
		}
		if opt.EnvVar != "" {
			if _, ok := os.LookupEnv(opt.EnvVar); ok {
				source = "env " + opt.EnvVar
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%q\t%s\n", opt.Key, schema.Resolve(c.config, opt.Key), source)
	}
	return w.Flush()
}

// printFile prints the loaded file contents back in config file syntax.
func (c *ConfigCommand) printFile(stdout io.Writer) {
	printOptions(stdout, c.config.Global)
	if !c.showAll {
		return
	}
	for _, section := range slices.Sorted(maps.Keys(c.config.Commands)) {
		_, _ = fmt.Fprintf(stdout, "\n[%s]\n", section)
		printOptions(stdout, c.config.Commands[section])
	}
}

func printOptions(w io.Writer, options map[string]string) {
	for _, k := range slices.Sorted(maps.Keys(options)) {
		_, _ = fmt.Fprintf(w, "%s %s\n", k, options[k])
	}
}

func (c *ConfigCommand) get(key string, stdout io.Writer) error {
	schema := config.DefaultSchema()
	_, set := c.config.GetGlobalOption(key)
	if !set && schema.Lookup("", key) == nil {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	_, _ = fmt.Fprintln(stdout, schema.Resolve(c.config, key))
	return nil
}

// set validates the value against the schema before writing it, so a typo
// never reaches the file.
func (c *ConfigCommand) set(key, value string, stdout io.Writer) error {
	candidate := config.NewConfig()
	candidate.SetGlobalOption(key, value)
	if issues := config.ValidateConfig(candidate, config.DefaultSchema()); len(issues) != 0 {
		return fmt.Errorf("refusing to set %s: %s", key, issues[0])
	}

	path := c.configPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}
	if err := config.SetKeyInFile(path, key, value); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	c.config.SetGlobalOption(key, value)

	_, _ = fmt.Fprintf(stdout, "%s = %s (%s)\n", key, value, path)
	return nil
}

func (c *ConfigCommand) validate(stdout io.Writer) error {
	issues := config.ValidateConfig(c.config, config.DefaultSchema())
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	if len(issues) != 0 {
		return fmt.Errorf("configuration has %d issue(s)", len(issues))
	}
	_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
	return nil
}

// InitCommand writes a commented starter config file.
type InitCommand struct {
	*BaseCommand
	configPath string
	force      bool
}

// NewInitCommand returns the init command. It writes to configPath, or to
// the default location when configPath is empty.
func NewInitCommand(configPath string) *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Create a starter configuration file",
			"init [-force]",
		),
		configPath: configPath,
	}
}

func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Replace an existing configuration file")
}

const starterConfig = `# jdb configuration file
#
# One "option value" per line. The value is the rest of the line.
# A [command] header starts options that only apply to that command.

# log.file ~/.jdb/jdb.log
log.level warn
log.max-size-mb 10
log.max-files 5

# What the debugger does when its handler fails: proceed or abort
fault-policy proceed

[version]
format text
`

func (c *InitCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if err := c.rejectArgs(args, stderr); err != nil {
		return err
	}

	path := c.configPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if c.force {
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, mode, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists, use -force to replace it: %w", path, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := io.WriteString(f, starterConfig); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if cfg, err := config.LoadFromPath(path); err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: %v\n", err)
	} else {
		for _, w := range cfg.Warnings {
			_, _ = fmt.Fprintf(stderr, "Warning: %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(stdout, "Initialized jdb configuration at: %s\n", path)
	return nil
}
