// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/pflag"
)

type helpMode int

const (
	helpNone helpMode = iota
	helpShort
	helpLong
)

// parsedCommand is the outcome of walking argv through the tree.
type parsedCommand struct {
	// nodes runs from the root to the selected node.
	nodes []Node

	// path holds the CLI names typed to reach the selected node.
	path []string

	// supplied holds the values actually given on the command line,
	// keyed by dest.
	supplied map[string]any

	help    helpMode
	version bool
}

func (c *CLI) execute(ctx context.Context, argv []string) (any, string, error) {
	inv := newInvocation(c, cliMode)
	parsed, err := c.parse(argv)
	commandPath := joinPath(parsed.path)
	if err != nil {
		return nil, commandPath, inv.fail(err)
	}
	if parsed.version {
		_, err := fmt.Fprintln(c.options.Stdout, c.options.VersionFunc())
		return nil, commandPath, err
	}
	if parsed.help != helpNone {
		return nil, commandPath, c.printHelp(c.options.Stdout, parsed)
	}
	inv.advance(StateParsed)

	command, err := c.walkAndBind(parsed)
	if err != nil {
		return nil, commandPath, inv.fail(err)
	}
	args, err := command.bindFromCommandLine(parsed.supplied)
	if err != nil {
		return nil, commandPath, inv.fail(err)
	}
	inv.advance(StateBound)

	result, err := command.execute(ctx, inv, args)
	return result, commandPath, err
}

// parse walks argv from the root. At each group the flags of every
// node on the path so far are parsed up to the first positional word,
// which selects the child; at the leaf the rest of argv is parsed with
// flags and positionals interspersed.
func (c *CLI) parse(argv []string) (*parsedCommand, error) {
	parsed := &parsedCommand{
		nodes:    []Node{c.root},
		path:     []string{c.root.CLIName()},
		supplied: make(map[string]any),
	}
	remaining := argv
	for {
		current := parsed.nodes[len(parsed.nodes)-1]
		group, isGroup := current.(*Group)

		flagSet, byName := parseFlagSet(joinPath(parsed.path), parsed.nodes)
		flagSet.SetInterspersed(!isGroup)
		if err := flagSet.Parse(remaining); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				parsed.help = requestedHelp(remaining)
				return parsed, nil
			}
			return parsed, flagError(err, remaining, flagSet)
		}
		if err := collectFlags(flagSet, byName, parsed.supplied); err != nil {
			return parsed, err
		}
		if c.options.VersionFunc != nil {
			if requested, _ := parsed.supplied["version"].(bool); requested {
				parsed.version = true
				return parsed, nil
			}
		}
		remaining = flagSet.Args()

		if !isGroup {
			return parsed, bindPositionals(current.(*Leaf), remaining, parsed.supplied)
		}
		if len(remaining) == 0 {
			return parsed, Validation("[%s] requires a command", joinPath(parsed.path)).
				WithHint("Run '%s --help' for the available commands.", describePath(parsed.path))
		}

		name := remaining[0]
		remaining = remaining[1:]
		child, ok := group.Child(name)
		if !ok {
			if name == "help" {
				parsed.help = helpShort
				return parsed, nil
			}
			return parsed, c.unknownCommand(group, parsed.path, name)
		}
		parsed.nodes = append(parsed.nodes, child)
		parsed.path = append(parsed.path, child.CLIName())
	}
}

// unknownCommand explains a word that names no child of group: the
// components that would install it, else the release tracks that have
// it, else the nearest child name.
func (c *CLI) unknownCommand(group *Group, path []string, name string) *UnknownCommandError {
	requested := append(slices.Clone(path), name)
	err := &UnknownCommandError{
		Path:       slices.Clone(path),
		Name:       name,
		Components: c.ComponentsForMissingCommand(requested),
	}
	if len(err.Components) > 0 {
		return err
	}
	if err.Alternatives = c.alternativeCommands(requested); len(err.Alternatives) == 0 {
		err.Suggestion = suggestName(name, childNames(group, Node.CLIName))
	}
	return err
}

// parseFlagSet builds a fresh flag set holding the flags of every node
// in nodes. A flag declared deeper in the path shadows an ancestor flag
// with the same name or shorthand.
func parseFlagSet(name string, nodes []Node) (*pflag.FlagSet, map[string]*Argument) {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() {}
	byName := make(map[string]*Argument)
	for i := len(nodes) - 1; i >= 0; i-- {
		for _, argument := range nodes[i].Args().Flags() {
			flagName := argument.FlagName()
			if flagSet.Lookup(flagName) != nil {
				continue
			}
			short := argument.Short
			if short != "" && flagSet.ShorthandLookup(short) != nil {
				short = ""
			}
			argument.register(flagSet, short)
			byName[flagName] = argument
		}
	}
	return flagSet, byName
}

// collectFlags copies the value of every flag that was set on the
// command line into supplied.
func collectFlags(flagSet *pflag.FlagSet, byName map[string]*Argument, supplied map[string]any) error {
	var firstErr error
	flagSet.Visit(func(flag *pflag.Flag) {
		argument, ok := byName[flag.Name]
		if !ok || firstErr != nil {
			return
		}
		value, err := argument.flagValue(flagSet)
		if err != nil {
			firstErr = Validation("reading --%s: %w", flag.Name, err)
			return
		}
		supplied[argument.Dest] = value
	})
	return firstErr
}

// bindPositionals assigns the leaf's positionals from words in
// declaration order. Absent positionals are left out so the leaf's
// bind reports them if they are required.
func bindPositionals(leaf *Leaf, words []string, supplied map[string]any) error {
	index := 0
	for _, argument := range leaf.args.Positionals() {
		if argument.Variadic() {
			if index < len(words) {
				supplied[argument.Dest] = slices.Clone(words[index:])
			}
			index = len(words)
			continue
		}
		if index >= len(words) {
			continue
		}
		value, err := argument.convert(words[index])
		if err != nil {
			return &InvalidValueError{Path: leaf.Path(), Dest: argument.Dest, Value: words[index], Reason: err.Error()}
		}
		supplied[argument.Dest] = value
		index++
	}
	if index < len(words) {
		return &UnexpectedArgumentError{Path: leaf.Path(), Unexpected: slices.Clone(words[index:])}
	}
	return nil
}

// requestedHelp distinguishes --help from -h in the words pflag
// stopped at.
func requestedHelp(words []string) helpMode {
	for _, word := range words {
		if word == "--" {
			break
		}
		if word == "--help" {
			return helpLong
		}
	}
	return helpShort
}

func flagError(err error, words []string, flagSet *pflag.FlagSet) error {
	toolError := Validation("%w", err)
	if suggestion := suggestFlag(words, flagSet); suggestion != "" {
		toolError.WithHint("Did you mean %s?", suggestion)
	}
	return toolError
}

// walkAndBind resolves the parsed path through the binder, binding
// every group above the leaf with the values it declares.
func (c *CLI) walkAndBind(parsed *parsedCommand) (*Command, error) {
	current := c.EntryPoint()
	names := parsed.path[1:]
	for i, name := range names {
		bound, err := current.bind(parsed.supplied, true)
		if err != nil {
			return nil, err
		}
		ref, err := bound.Resolve(name)
		if err != nil {
			return nil, err
		}
		if i == len(names)-1 {
			if ref.Kind != KindLeaf {
				return nil, Validation("[%s] is a group, not a command", joinPath(parsed.path))
			}
			return ref.Command, nil
		}
		current = ref.Group
	}
	return nil, Validation("[%s] requires a command", joinPath(parsed.path))
}

func (c *CLI) printHelp(w io.Writer, parsed *parsedCommand) error {
	node := parsed.nodes[len(parsed.nodes)-1]
	if parsed.help == helpLong && c.options.HelpFunc != nil {
		return c.options.HelpFunc(w, node, slices.Clone(parsed.path))
	}
	WriteUsage(w, parsed.nodes, parsed.path)
	return nil
}
