package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/jdb/internal/config"
	"github.com/joeycumines/jdb/internal/debugger"
	"github.com/joeycumines/jdb/internal/jsengine"
	"github.com/joeycumines/jdb/internal/logging"
	"github.com/joeycumines/jdb/internal/repl"
)

// DebugCommand runs a script under the interactive debugger.
type DebugCommand struct {
	*BaseCommand
	config *config.Config

	logFile     string
	logLevel    string
	faultPolicy string
	prompt      string

	// stdin is the operator's input; nil means os.Stdin.
	stdin io.Reader
	// ctxFactory creates the run context. If nil, SIGINT and SIGTERM cancel
	// the run. Tests set this to avoid signal handling races.
	ctxFactory func() (context.Context, context.CancelFunc)
}

// NewDebugCommand creates the debug command.
func NewDebugCommand(cfg *config.Config) *DebugCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &DebugCommand{
		BaseCommand: NewBaseCommand(
			"debug",
			"Run a JavaScript file under the interactive debugger",
			"debug [options] <script.js>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the debug command.
func (c *DebugCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.logFile, "log-file", "", "Path to log file (JSON output, rotated by size)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&c.faultPolicy, "fault-policy", "", "Decision when the debug handler fails (proceed, abort)")
	fs.StringVar(&c.prompt, "prompt", "", "Interactive prompt text")
}

// Execute loads the script named by args[0] and runs it under the debugger.
// An operator abort ("q") is not an error; script errors and signals are.
func (c *DebugCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: %s\n", c.Usage())
		return fmt.Errorf("debug: expected exactly one script, got %d arguments", len(args))
	}
	path := args[0]

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	logOpts, err := resolveLogOptions(c.logFile, c.logLevel, c.config)
	if err != nil {
		return err
	}
	logger, logCloser, err := logging.New(stderr, logOpts)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	schema := config.DefaultSchema()
	policyName := c.faultPolicy
	if policyName == "" {
		policyName = schema.ResolveCommand(c.config, c.Name(), "fault-policy")
	}
	policy, err := debugger.ParseFaultPolicy(policyName)
	if err != nil {
		return err
	}
	prompt := c.prompt
	if prompt == "" {
		prompt = schema.ResolveCommand(c.config, c.Name(), "prompt")
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if c.ctxFactory != nil {
		ctx, cancel = c.ctxFactory()
	} else {
		ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
	defer cancel()

	stdin := c.stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	interp := &repl.Interpreter{}
	coord := debugger.NewCoordinator(repl.NewHandler(interp),
		debugger.WithContext(ctx),
		debugger.WithFaultPolicy(policy),
		debugger.WithLogger(logger),
	)
	engine := jsengine.New(coord,
		jsengine.WithBreakpoints(coord.Breakpoints()),
		jsengine.WithLogger(logger),
		jsengine.WithOutput(stdout, stderr),
	)
	*interp = *repl.NewInterpreter(coord, engine, repl.NewLineReader(stdin, stdout), stdout,
		repl.WithPrompt(prompt),
		repl.WithLogger(logger),
	)

	logger.Debug("debug session starting", "script", path, "faultPolicy", policy)
	_, err = engine.RunString(ctx, path, string(src))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jsengine.ErrAborted) && ctx.Err() == nil:
		logger.Info("script aborted by operator", "script", path)
		return nil
	default:
		return err
	}
}
