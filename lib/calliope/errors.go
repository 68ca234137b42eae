// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrorCategory classifies tool errors so that callers can make
// programmatic decisions (retry, fix input, escalate) without parsing
// error message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing required arguments, unknown flags, values outside their
	// declared choices.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the caller lacks permission for the
	// requested operation.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict indicates the operation conflicts with existing
	// state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient indicates a temporary failure. The caller
	// should back off and retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected failure: bugs, I/O
	// errors, corrupt data the system produced itself.
	CategoryInternal ErrorCategory = "internal"
)

// toolFamily is implemented by every error type the engine treats as
// a user-facing tool error. In CLI mode these are printed as a single
// "(command.path) message" line instead of an unexpected-error report.
type toolFamily interface {
	error
	toolError()
}

// IsToolError reports whether err, or any error it wraps, belongs to
// the tool-error family.
func IsToolError(err error) bool {
	var target toolFamily
	return errors.As(err, &target)
}

// ToolError is a categorized error returned by command handlers and by
// the engine itself. Use the category constructors (Validation,
// NotFound, ...) rather than building one directly.
type ToolError struct {
	// Category classifies the error for programmatic handling.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error

	// Hint is an optional remediation line printed after the message.
	Hint string

	// CommandPath is the dot-joined path of the command that failed.
	// The dispatcher fills it in when the handler left it empty.
	CommandPath string
}

func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// Unwrap returns the underlying error so errors.Is and errors.As can
// walk the chain through the wrapper.
func (e *ToolError) Unwrap() error { return e.Err }

func (*ToolError) toolError() {}

// WithHint returns the error with a remediation hint attached.
func (e *ToolError) WithHint(format string, args ...any) *ToolError {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error: the caller lacks permission.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error: the operation conflicts with existing state.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// LayoutError reports a malformed command tree: an uppercase module
// name, a group without children, a missing mount point. Layout errors
// are returned from [CLILoader.Generate]; no partial tree is produced.
type LayoutError struct {
	Message string
}

func (e *LayoutError) Error() string { return e.Message }

func (*LayoutError) toolError() {}

func layoutErrorf(format string, args ...any) *LayoutError {
	return &LayoutError{Message: fmt.Sprintf(format, args...)}
}

// ArgumentError reports a bad argument declaration in a module's Args
// hook: a duplicate dest, a positional on a group, an invalid default.
type ArgumentError struct {
	Path     []string
	Argument string
	Message  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q for command [%s]: %s",
		e.Argument, joinPath(e.Path), e.Message)
}

func (*ArgumentError) toolError() {}

// MissingArgumentError reports required arguments that were not
// supplied at the node that declared them.
type MissingArgumentError struct {
	Path    []string
	Missing []string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("The following required arguments were not provided for command [%s]: [%s]",
		joinPath(e.Path), strings.Join(e.Missing, ", "))
}

func (*MissingArgumentError) toolError() {}

// UnexpectedArgumentError reports supplied argument names that no node
// on the path declared.
type UnexpectedArgumentError struct {
	Path       []string
	Unexpected []string
}

func (e *UnexpectedArgumentError) Error() string {
	return fmt.Sprintf("The following arguments were unexpected for command [%s]: [%s]",
		joinPath(e.Path), strings.Join(e.Unexpected, ", "))
}

func (*UnexpectedArgumentError) toolError() {}

// UnknownCommandError reports a word on the command line that does not
// name a child of the current group.
type UnknownCommandError struct {
	Path       []string
	Name       string
	Suggestion string

	// Components are the installable components that provide the
	// command, when it was mounted from a module that is not present.
	Components []string

	// Alternatives are the paths that name the command in other
	// release tracks.
	Alternatives [][]string
}

func (e *UnknownCommandError) Error() string {
	if len(e.Components) > 0 {
		return fmt.Sprintf("You do not currently have [%s] installed. Using it requires the component(s): [%s]",
			joinPath(append(slices.Clone(e.Path), e.Name)), strings.Join(e.Components, ", "))
	}
	message := fmt.Sprintf("Invalid choice: %q is not a command or group of [%s]", e.Name, joinPath(e.Path))
	if len(e.Alternatives) > 0 {
		message += "\nThis command is available in one or more alternate release tracks. Try:"
		for _, alternative := range e.Alternatives {
			message += "\n  " + describePath(alternative)
		}
		return message
	}
	if e.Suggestion != "" {
		message += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return message
}

func (*UnknownCommandError) toolError() {}

// InvalidValueError reports a supplied value that does not fit the
// argument's declaration: outside its choices, or of the wrong type.
type InvalidValueError struct {
	Path    []string
	Dest    string
	Value   any
	Choices []string
	Reason  string
}

func (e *InvalidValueError) Error() string {
	if len(e.Choices) > 0 {
		return fmt.Sprintf("argument %s for command [%s]: invalid choice %v (choose from %s)",
			e.Dest, joinPath(e.Path), e.Value, strings.Join(e.Choices, ", "))
	}
	return fmt.Sprintf("argument %s for command [%s]: invalid value %v: %s",
		e.Dest, joinPath(e.Path), e.Value, e.Reason)
}

func (*InvalidValueError) toolError() {}

// LookupError reports an attribute lookup on a bound group that names
// neither a child group nor a command.
type LookupError struct {
	Path       []string
	Name       string
	Suggestion string
}

func (e *LookupError) Error() string {
	message := fmt.Sprintf("[%s] has no group or command %q", joinPath(e.Path), e.Name)
	if e.Suggestion != "" {
		message += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return message
}

func (*LookupError) toolError() {}

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have already written its
// own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. [CLI.Run] checks for this interface
// on returned errors.
func (e *ExitError) ExitCode() int {
	return e.Code
}

func (*ExitError) toolError() {}

// exitCode returns the exit code carried by err, or 1.
func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
