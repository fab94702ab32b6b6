package command

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrUnknownCommand is returned by Get for names that were never registered.
var ErrUnknownCommand = errors.New("command not found")

// Registry manages the collection of available commands.
type Registry struct {
	commands map[string]Command
	fallback string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd, replacing any command of the same name.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// SetFallback names the command that Resolve uses when the first argument
// is a script path rather than a command name.
func (r *Registry) SetFallback(name string) {
	r.fallback = name
}

// Get returns a command by name.
func (r *Registry) Get(name string) (Command, error) {
	if cmd, exists := r.commands[name]; exists {
		return cmd, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// List returns the registered command names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the command for a command line (without the program name)
// and returns it with its remaining arguments. "jdb main.js" is shorthand
// for the fallback command: an unknown first argument that looks like a
// script, or names an existing file, is passed through to it unchanged.
func (r *Registry) Resolve(args []string) (Command, []string, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("%w: no command given", ErrUnknownCommand)
	}
	if cmd, err := r.Get(args[0]); err == nil {
		return cmd, args[1:], nil
	}
	if r.fallback != "" && looksLikeScript(args[0]) {
		cmd, err := r.Get(r.fallback)
		if err != nil {
			return nil, nil, err
		}
		return cmd, args, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
}

func looksLikeScript(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return false
	}
	if strings.HasSuffix(arg, ".js") || strings.HasSuffix(arg, ".mjs") || strings.HasSuffix(arg, ".cjs") {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && info.Mode().IsRegular()
}
