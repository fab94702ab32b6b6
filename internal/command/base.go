package command

import (
	"flag"
	"fmt"
	"io"
)

// Command represents a jdb subcommand.
type Command interface {
	// Name returns the command name.
	Name() string

	// Description returns a short description of the command.
	Description() string

	// Usage returns the usage string for the command.
	Usage() string

	// SetupFlags registers the command's flags on fs before parsing.
	SetupFlags(fs *flag.FlagSet)

	// Execute runs the command with the positional arguments left after
	// flag parsing.
	Execute(args []string, stdout, stderr io.Writer) error
}

// BaseCommand holds the descriptive fields every command shares.
type BaseCommand struct {
	name        string
	description string
	usage       string
}

// NewBaseCommand creates a new BaseCommand.
func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{
		name:        name,
		description: description,
		usage:       usage,
	}
}

func (c *BaseCommand) Name() string        { return c.name }
func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

// SetupFlags registers nothing; commands with flags override it.
func (c *BaseCommand) SetupFlags(fs *flag.FlagSet) {}

// rejectArgs reports unexpected positional arguments on stderr.
func (c *BaseCommand) rejectArgs(args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return nil
	}
	_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
	return fmt.Errorf("%s: unexpected arguments", c.name)
}
