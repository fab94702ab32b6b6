package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
)

// OptionType is the value type an option is validated against.
type OptionType string

const (
	TypeString OptionType = "string"
	// TypeBool accepts true/false, yes/no, on/off and 1/0.
	TypeBool OptionType = "bool"
	TypeInt  OptionType = "int"
	// TypeEnum accepts one of ConfigOption.Choices, case-insensitively.
	TypeEnum OptionType = "enum"
)

// ConfigOption declares one option. Section is "" for global options,
// otherwise the name of the command it belongs to.
type ConfigOption struct {
	Key         string
	Type        OptionType
	Choices     []string
	Default     string
	Description string
	Section     string
	// EnvVar, if set, overrides any value from the config file.
	EnvVar string
}

type optionID struct{ section, key string }

// ConfigSchema is the set of options jdb knows about.
type ConfigSchema struct {
	order   []optionID
	options map[optionID]*ConfigOption
}

func NewSchema() *ConfigSchema {
	return &ConfigSchema{options: map[optionID]*ConfigOption{}}
}

// Register adds opt, replacing an earlier option with the same section and
// key in place.
func (s *ConfigSchema) Register(opt ConfigOption) {
	id := optionID{opt.Section, opt.Key}
	if _, ok := s.options[id]; !ok {
		s.order = append(s.order, id)
	}
	s.options[id] = &opt
}

func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the option declared for key in section, or nil. It does
// not fall back to the global section.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	return s.options[optionID{section, key}]
}

// effective is Lookup with the global fallback every command section gets.
func (s *ConfigSchema) effective(section, key string) *ConfigOption {
	if opt := s.Lookup(section, key); opt != nil || section == "" {
		return opt
	}
	return s.Lookup("", key)
}

// IsKnown reports whether key may appear in section. Global options are
// accepted in every command section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.effective(section, key) != nil
}

// SectionOptions lists the options of one section in registration order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, id := range s.order {
		if id.section == section {
			out = append(out, *s.options[id])
		}
	}
	return out
}

// Sections lists the command sections, sorted.
func (s *ConfigSchema) Sections() []string {
	set := map[string]struct{}{}
	for _, id := range s.order {
		if id.section != "" {
			set[id.section] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve returns the effective value of a global option: its environment
// variable, then the config file, then the declared default.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	return s.ResolveCommand(c, "", key)
}

// ResolveCommand is Resolve for an option read by command, so the command
// section of the file takes precedence over the global one. c may be nil.
func (s *ConfigSchema) ResolveCommand(c *Config, command, key string) string {
	opt := s.effective(command, key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetCommandOption(command, key); ok {
			return v
		}
	}
	if opt == nil {
		return ""
	}
	return opt.Default
}

// ValidateConfig reports unknown options and values of the wrong type,
// sorted.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	for key, value := range c.Global {
		switch opt := s.Lookup("", key); {
		case opt == nil:
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
		case opt.validate(value) != nil:
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, opt.validate(value)))
		}
	}
	for section, values := range c.Commands {
		for key, value := range values {
			switch opt := s.effective(section, key); {
			case opt == nil:
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
			case opt.validate(value) != nil:
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, opt.validate(value)))
			}
		}
	}
	slices.Sort(issues)
	return issues
}

func (o *ConfigOption) validate(value string) error {
	var ok bool
	switch o.Type {
	case "", TypeString:
		return nil
	case TypeBool:
		_, err := parseBool(value)
		ok = err == nil
	case TypeInt:
		_, err := strconv.Atoi(value)
		ok = err == nil
	case TypeEnum:
		if !slices.Contains(o.Choices, strings.ToLower(value)) {
			return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Choices, "|"), value)
		}
		return nil
	default:
		return fmt.Errorf("unknown option type %q", o.Type)
	}
	if !ok {
		return fmt.Errorf("expected %s, got %q", o.Type, value)
	}
	return nil
}

// GetString returns a global option, or "".
func (c *Config) GetString(key string) string {
	return c.Global[key]
}

// GetBool returns a global option as a bool. Unset or malformed values are
// false.
func (c *Config) GetBool(key string) bool {
	b, err := parseBool(c.GetString(key))
	return err == nil && b
}

// GetInt returns a global option as an int. Unset or malformed values are 0.
func (c *Config) GetInt(key string) int {
	n, _ := strconv.Atoi(c.GetString(key))
	return n
}

// FormatHelp describes every option, globals first, then one block per
// command section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	if globals := s.SectionOptions(""); len(globals) != 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			o.writeHelp(&b)
		}
	}
	for _, section := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", section)
		for _, o := range s.SectionOptions(section) {
			o.writeHelp(&b)
		}
	}
	return b.String()
}

func (o ConfigOption) writeHelp(b *strings.Builder) {
	var notes []string
	switch o.Type {
	case "", TypeString:
	case TypeEnum:
		notes = append(notes, "one of: "+strings.Join(o.Choices, ", "))
	default:
		notes = append(notes, "type: "+string(o.Type))
	}
	if o.Default != "" {
		notes = append(notes, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		notes = append(notes, "env: "+o.EnvVar)
	}

	fmt.Fprintf(b, "  %-20s %s", o.Key, o.Description)
	if len(notes) != 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(notes, ", "))
	}
	b.WriteByte('\n')
}

// DefaultSchema declares every option jdb reads.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "log.file", Description: "Log file path (JSON output, rotated by size)", EnvVar: "JDB_LOG_FILE"},
		{Key: "log.level", Type: TypeEnum, Choices: []string{"debug", "info", "warn", "error"}, Default: "warn", Description: "Log level", EnvVar: "JDB_LOG_LEVEL"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Rotate the log file once it reaches this many MB"},
		{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Rotated log files to keep"},
		{Key: "prompt", Default: "> ", Description: "Operator prompt"},
		{Key: "fault-policy", Type: TypeEnum, Choices: []string{"proceed", "abort"}, Default: "proceed", Description: "Decision when the debug handler fails", EnvVar: "JDB_FAULT_POLICY"},

		{Key: "format", Section: "version", Type: TypeEnum, Choices: []string{"text", "json"}, Default: "text", Description: "Version output format"},
	})
	return s
}
