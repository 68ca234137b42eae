// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/calliope/lib/logging"
)

// CLI is a generated command-line interface. It is immutable and safe
// for concurrent use; every invocation allocates its own parse state,
// argument maps, config, and logger.
type CLI struct {
	options      LoaderOptions
	root         *Group
	tracks       []ReleaseTrack
	baseHooks    *ConfigHooks
	missing      []missingComponent
	preRunHooks  []*runHook
	postRunHooks []*runHook
	logs         *logging.Sink
}

// Name returns the program name.
func (c *CLI) Name() string { return c.root.CLIName() }

// Root returns the root group.
func (c *CLI) Root() *Group { return c.root }

// Tracks returns the release tracks that were loaded, in registration
// order. GA is implied and not listed.
func (c *CLI) Tracks() []ReleaseTrack { return slices.Clone(c.tracks) }

// LogFile returns the path of this process's log file, or "".
func (c *CLI) LogFile() string { return c.logs.Path() }

// Close releases the log file.
func (c *CLI) Close() error { return c.logs.Close() }

// EntryPoint returns the root of the interactive binder.
func (c *CLI) EntryPoint() *UnboundGroup {
	return &UnboundGroup{cli: c, group: c.root}
}

// IsValidCommand reports whether path (CLI names, root first) names a
// group or command in the tree.
func (c *CLI) IsValidCommand(path []string) bool {
	_, ok := c.lookupNode(path)
	return ok
}

func (c *CLI) lookupNode(path []string) (Node, bool) {
	if len(path) == 0 || path[0] != c.root.CLIName() {
		return nil, false
	}
	var current Node = c.root
	for _, name := range path[1:] {
		group, ok := current.(*Group)
		if !ok {
			return nil, false
		}
		child, ok := group.Child(name)
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// ComponentsForMissingCommand returns the components that would
// provide path, for modules that were skipped because they were not
// registered.
func (c *CLI) ComponentsForMissingCommand(path []string) []string {
	var components []string
	for _, missing := range c.missing {
		if missing.component == "" || len(path) < len(missing.path) {
			continue
		}
		if slices.Equal(path[:len(missing.path)], missing.path) && !slices.Contains(components, missing.component) {
			components = append(components, missing.component)
		}
	}
	return components
}

func (c *CLI) recordMissing(path []string, component string) {
	c.missing = append(c.missing, missingComponent{path: path, component: component})
}

// Execute parses argv (without the program name) and runs the selected
// command. Errors are returned unmodified. Help and version requests
// print to stdout and return a nil result.
func (c *CLI) Execute(ctx context.Context, argv []string) (any, error) {
	result, _, err := c.execute(ctx, argv)
	return result, err
}

// Run is the process entry point: it executes argv and reports errors
// the way a command-line tool does. Tool errors and errors matched by
// KnownErrors are written in full to the log file and summarised on
// stderr as "(command.path) message"; the returned exit code is 1 or
// the error's ExitCode(). Any other error is logged and returned for
// the caller to report.
func (c *CLI) Run(ctx context.Context, argv []string) (int, error) {
	_, commandPath, err := c.execute(ctx, argv)
	if err == nil {
		return 0, nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	fileLogger := c.logs.FileLogger()
	if IsToolError(err) || c.isKnownError(err) {
		message := fmt.Sprintf("(%s) %s", commandPath, err)
		fileLogger.Error("command failed", "command", commandPath, "error", err.Error())
		fmt.Fprintf(c.options.Stderr, "ERROR: %s\n", message)
		return exitCode(err), nil
	}

	fileLogger.Error("unexpected error", "command", commandPath, "error", err.Error())
	return 1, fmt.Errorf("(%s) unexpected error: %w", commandPath, err)
}

func (c *CLI) isKnownError(err error) bool {
	for _, known := range c.options.KnownErrors {
		if known(err) {
			return true
		}
	}
	return false
}

// runMode selects the behaviour differences between argv and library
// invocations.
type runMode int

const (
	interactiveMode runMode = iota
	cliMode
)

// InvocationState is the lifecycle stage of one invocation.
type InvocationState int

const (
	StateUnparsed InvocationState = iota
	StateParsed
	StateBound
	StateExecuted
	StateDone
	StateFailed
)

func (s InvocationState) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateParsed:
		return "parsed"
	case StateBound:
		return "bound"
	case StateExecuted:
		return "executed"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("InvocationState(%d)", int(s))
	}
}

// invocation carries the per-call state: lifecycle stage, mode, and the
// logger once the verbosity is known.
type invocation struct {
	cli     *CLI
	mode    runMode
	state   InvocationState
	history []InvocationState
	logger  *slog.Logger
}

func newInvocation(cli *CLI, mode runMode) *invocation {
	return &invocation{cli: cli, mode: mode, state: StateUnparsed, history: []InvocationState{StateUnparsed}}
}

func (inv *invocation) advance(next InvocationState) {
	if inv.logger != nil {
		inv.logger.Debug("invocation state", "from", inv.state.String(), "to", next.String())
	}
	inv.state = next
	inv.history = append(inv.history, next)
}

func (inv *invocation) fail(err error) error {
	if inv.logger != nil {
		inv.logger.Debug("invocation failed", "error", err.Error())
	}
	inv.state = StateFailed
	inv.history = append(inv.history, StateFailed)
	return err
}

// attachLogger builds the invocation's logger from the --verbosity
// argument, or the mode's default.
func (inv *invocation) attachLogger(args Args, commandPath string) error {
	verbosity := logging.DefaultInteractiveVerbosity
	if inv.mode == cliMode {
		verbosity = logging.DefaultCLIVerbosity
	}
	if value, ok := args.Get("verbosity"); ok && value != nil {
		requested, isInt := value.(int)
		if !isInt || !logging.ValidVerbosity(requested) {
			return &InvalidValueError{
				Path:   []string{inv.cli.root.CLIName()},
				Dest:   "verbosity",
				Value:  value,
				Reason: fmt.Sprintf("must be between %d and %d", logging.VerbosityError, logging.VerbosityDebug),
			}
		}
		verbosity = requested
	}
	level := new(slog.LevelVar)
	level.Set(logging.Level(verbosity))
	inv.logger = inv.cli.logs.Logger(level).With("command", commandPath)
	for _, state := range inv.history[1:] {
		inv.logger.Debug("invocation state", "to", state.String())
	}
	return nil
}
