// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/calliope/lib/clock"
)

// UnboundGroup is a group reached through the interactive binder whose
// arguments have not been supplied yet.
type UnboundGroup struct {
	cli    *CLI
	group  *Group
	parent *BoundGroup
}

// Node returns the underlying group.
func (u *UnboundGroup) Node() *Group { return u.group }

// ParentGroup returns the bound group this one was resolved from, or
// nil at the root.
func (u *UnboundGroup) ParentGroup() *BoundGroup { return u.parent }

// EntryPoint returns the root of the binder.
func (u *UnboundGroup) EntryPoint() *UnboundGroup { return u.cli.EntryPoint() }

// Doc returns the group's long help.
func (u *UnboundGroup) Doc() string { return u.group.LongHelp() }

// Path returns the path the group was reached by.
func (u *UnboundGroup) Path() []string {
	if u.parent == nil {
		return []string{u.group.CLIName()}
	}
	return append(slices.Clone(u.parent.path), u.group.CLIName())
}

func (u *UnboundGroup) String() string {
	if u.parent == nil {
		return u.group.Name()
	}
	return u.parent.String() + "." + u.group.Name()
}

// Bind supplies the group's arguments. Keys the group did not declare
// are rejected.
func (u *UnboundGroup) Bind(kwargs map[string]any) (*BoundGroup, error) {
	return u.bind(kwargs, false)
}

func (u *UnboundGroup) bind(kwargs map[string]any, ignoreUnknown bool) (*BoundGroup, error) {
	current := Args{}
	hooks := u.cli.baseHooks
	if u.parent != nil {
		current = u.parent.args
		hooks = u.parent.hooks
	}
	args, err := u.group.CreateNewArgs(kwargs, current, ignoreUnknown)
	if err != nil {
		return nil, err
	}

	consumed := make(map[string]any)
	for key, value := range kwargs {
		if u.group.args.HasDest(key) {
			consumed[key] = value
		}
	}
	return &BoundGroup{
		unbound:  u,
		args:     args,
		consumed: consumed,
		hooks:    hooks.WithFilter(u.group.filter),
		path:     u.Path(),
	}, nil
}

// Resolve binds the group with no arguments and resolves name in it.
func (u *UnboundGroup) Resolve(name string) (Ref, error) {
	bound, err := u.Bind(nil)
	if err != nil {
		return Ref{}, err
	}
	return bound.Resolve(name)
}

// Lookup resolves a sequence of names, binding every intermediate group
// with no arguments.
func (u *UnboundGroup) Lookup(names ...string) (Ref, error) {
	if len(names) == 0 {
		return Ref{Kind: KindGroup, Group: u}, nil
	}
	ref, err := u.Resolve(names[0])
	if err != nil {
		return Ref{}, err
	}
	if len(names) == 1 {
		return ref, nil
	}
	if ref.Kind != KindGroup {
		return Ref{}, &LookupError{Path: ref.Command.Path(), Name: names[1]}
	}
	return ref.Group.Lookup(names[1:]...)
}

// BoundGroup is a group whose arguments have been supplied and
// validated.
type BoundGroup struct {
	unbound *UnboundGroup
	args    Args

	// consumed is the subset of the bind arguments this group declared,
	// kept for String.
	consumed map[string]any
	hooks    *ConfigHooks
	path     []string
}

// Args returns the arguments resolved at this group, including those
// of its ancestors.
func (b *BoundGroup) Args() Args { return b.args }

// UnboundGroup returns the group before binding.
func (b *BoundGroup) UnboundGroup() *UnboundGroup { return b.unbound }

// ParentGroup returns the bound parent, or nil at the root.
func (b *BoundGroup) ParentGroup() *BoundGroup { return b.unbound.parent }

// EntryPoint returns the root of the binder.
func (b *BoundGroup) EntryPoint() *UnboundGroup { return b.unbound.cli.EntryPoint() }

// Path returns the path the group was reached by.
func (b *BoundGroup) Path() []string { return slices.Clone(b.path) }

func (b *BoundGroup) String() string {
	return fmt.Sprintf("%s(%s)", b.unbound.String(), formatKwargs(b.consumed))
}

// Ref is the result of resolving a name in a bound group: exactly one
// of Group and Command is set, according to Kind.
type Ref struct {
	Kind    NodeKind
	Group   *UnboundGroup
	Command *Command
}

// Resolve returns the child group or command called name. Dash and
// underscore forms are equivalent.
func (b *BoundGroup) Resolve(name string) (Ref, error) {
	group := b.unbound.group
	child, ok := group.Child(name)
	if !ok {
		return Ref{}, &LookupError{
			Path:       b.Path(),
			Name:       name,
			Suggestion: suggestName(moduleName(name), childNames(group, Node.Name)),
		}
	}
	switch typed := child.(type) {
	case *Group:
		return Ref{Kind: KindGroup, Group: &UnboundGroup{cli: b.unbound.cli, group: typed, parent: b}}, nil
	case *Leaf:
		return Ref{Kind: KindLeaf, Command: &Command{cli: b.unbound.cli, leaf: typed, parent: b}}, nil
	default:
		return Ref{}, fmt.Errorf("unsupported node type %T", child)
	}
}

// declares reports whether this group or any bound ancestor declared
// dest.
func (b *BoundGroup) declares(dest string) bool {
	for current := b; current != nil; current = current.unbound.parent {
		if current.unbound.group.args.HasDest(dest) {
			return true
		}
	}
	return false
}

// Command is a leaf reached through the binder, ready to be called.
type Command struct {
	cli    *CLI
	leaf   *Leaf
	parent *BoundGroup
}

// Node returns the underlying leaf.
func (c *Command) Node() *Leaf { return c.leaf }

// ParentGroup returns the bound group the command was resolved from.
func (c *Command) ParentGroup() *BoundGroup { return c.parent }

// EntryPoint returns the root of the binder.
func (c *Command) EntryPoint() *UnboundGroup { return c.cli.EntryPoint() }

// Doc returns the command's long help.
func (c *Command) Doc() string { return c.leaf.LongHelp() }

// Path returns the path the command was reached by.
func (c *Command) Path() []string {
	return append(slices.Clone(c.parent.path), c.leaf.CLIName())
}

func (c *Command) String() string {
	return c.parent.String() + "." + c.leaf.Name()
}

// Call validates kwargs against the command's declaration and runs it:
// load config, build the tool context, run the filters of every group
// on the path, run the command, save config, display. Errors are
// returned unmodified. Run hooks do not apply.
func (c *Command) Call(ctx context.Context, kwargs map[string]any) (any, error) {
	inv := newInvocation(c.cli, interactiveMode)
	args, err := c.leaf.CreateNewArgs(kwargs, c.parent.args, c.cli.options.UnknownArguments == IgnoreUnknown)
	if err != nil {
		return nil, inv.fail(err)
	}
	inv.advance(StateBound)
	return c.execute(ctx, inv, args)
}

// bindFromCommandLine performs the leaf bind for an argv invocation:
// keys consumed by an ancestor are dropped, and what remains must be
// declared by the leaf unless unknown arguments are ignored.
func (c *Command) bindFromCommandLine(supplied map[string]any) (Args, error) {
	if c.cli.options.UnknownArguments == IgnoreUnknown {
		return c.leaf.CreateNewArgs(supplied, c.parent.args, true)
	}
	remaining := make(map[string]any, len(supplied))
	for key, value := range supplied {
		if !c.leaf.args.HasDest(key) && c.parent.declares(key) {
			continue
		}
		remaining[key] = value
	}
	return c.leaf.CreateNewArgs(remaining, c.parent.args, false)
}

func (c *Command) execute(ctx context.Context, inv *invocation, args Args) (any, error) {
	path := c.Path()
	pathString := joinPath(path)
	if err := inv.attachLogger(args, pathString); err != nil {
		return nil, inv.fail(err)
	}
	hooks := c.parent.hooks

	if inv.mode == cliMode {
		if err := runHooks(c.cli.preRunHooks, pathString); err != nil {
			return nil, inv.fail(err)
		}
	}

	config, err := hooks.LoadConfig()
	if err != nil {
		return nil, inv.fail(fmt.Errorf("loading configuration: %w", err))
	}
	toolContext, err := hooks.LoadContext(config)
	if err != nil {
		return nil, inv.fail(fmt.Errorf("loading tool context: %w", err))
	}
	for _, filter := range hooks.Filters() {
		if err := filter(toolContext, config, args); err != nil {
			return nil, inv.fail(annotate(err, pathString))
		}
	}

	execution := &Execution{
		Context:     ctx,
		Args:        args,
		ToolContext: toolContext,
		Config:      config,
		CommandPath: path,
		EntryPoint:  c.cli.EntryPoint(),
		Logger:      inv.logger,
		Stdout:      c.cli.options.Stdout,
		Stderr:      c.cli.options.Stderr,
	}
	started := c.cli.options.Clock.Now()
	result, err := c.leaf.run(execution)
	inv.logger.Debug("command finished", "elapsed", clock.Since(c.cli.options.Clock, started), "failed", err != nil)
	if err != nil {
		return nil, inv.fail(annotate(err, pathString))
	}
	inv.advance(StateExecuted)

	if err := hooks.SaveConfig(config); err != nil {
		return nil, inv.fail(fmt.Errorf("saving configuration: %w", err))
	}
	if inv.mode == cliMode {
		if err := runHooks(c.cli.postRunHooks, pathString); err != nil {
			return nil, inv.fail(err)
		}
	}
	if c.leaf.display != nil {
		if err := c.leaf.display(execution, result); err != nil {
			return nil, inv.fail(annotate(err, pathString))
		}
	}
	inv.advance(StateDone)
	return result, nil
}

// annotate wraps a tool error that does not carry a command path yet
// in one that records commandPath. The handler's error value is never
// modified, so shared error values stay comparable with errors.Is.
func annotate(err error, commandPath string) error {
	toolError, ok := err.(*ToolError)
	if !ok || toolError.CommandPath != "" {
		return err
	}
	return &ToolError{Category: toolError.Category, Err: toolError, CommandPath: commandPath}
}

// childNames returns name(child) for every child of group.
func childNames(group *Group, name func(Node) string) []string {
	names := make([]string, 0, len(group.children))
	for _, child := range group.children {
		names = append(names, name(child))
	}
	return names
}

// describePath renders a command path for messages.
func describePath(path []string) string {
	return strings.Join(path, " ")
}
