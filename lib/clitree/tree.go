// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clitree

import (
	"strings"
	"time"

	"github.com/bureau-foundation/calliope/lib/calliope"
)

// Command is one group or command of the exported tree.
type Command struct {
	Name        string              `json:"name" yaml:"name"`
	Release     string              `json:"release" yaml:"release"`
	Hidden      bool                `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Group       bool                `json:"group,omitempty" yaml:"group,omitempty"`
	Capsule     string              `json:"capsule" yaml:"capsule"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Flags       map[string]Flag     `json:"flags,omitempty" yaml:"flags,omitempty"`
	Positionals []Positional        `json:"positionals,omitempty" yaml:"positionals,omitempty"`
	Commands    map[string]*Command `json:"commands,omitempty" yaml:"commands,omitempty"`

	parent *Command
}

// Flag describes one flag a command declares.
type Flag struct {
	// Type is the value kind: "string", "bool", "int", "float",
	// "duration", "strings", "map", or "size".
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`

	// Value is the metavar shown in usage. Empty for bool flags.
	Value       string   `json:"value,omitempty" yaml:"value,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Hidden      bool     `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Choices     []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Positional describes one positional argument, in declaration order.
// CountMax zero means unbounded.
type Positional struct {
	Name        string `json:"name" yaml:"name"`
	Value       string `json:"value" yaml:"value"`
	CountMin    int    `json:"countmin" yaml:"countmin"`
	CountMax    int    `json:"countmax" yaml:"countmax"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Lookup returns the descendant reached by names, or nil.
func (c *Command) Lookup(names ...string) *Command {
	current := c
	for _, name := range names {
		if current == nil {
			return nil
		}
		current = current.Commands[name]
	}
	return current
}

// Count returns the number of nodes in the tree rooted at c.
func (c *Command) Count() int {
	count := 1
	for _, child := range c.Commands {
		count += child.Count()
	}
	return count
}

// inherited reports whether an ancestor of c already exports the flag.
func (c *Command) inherited(name string) bool {
	for ancestor := c.parent; ancestor != nil; ancestor = ancestor.parent {
		if _, ok := ancestor.Flags[name]; ok {
			return true
		}
	}
	return false
}

// Build exports the tree under root. The options select hidden nodes
// and restrict the walk to a subset of the top-level groups.
func Build(root *calliope.Group, options calliope.WalkOptions) *Command {
	return calliope.Walk[*Command](root, &builder{hidden: options.Hidden}, options)
}

// builder is the walk visitor; its parent value is the exported parent.
type builder struct {
	hidden bool
}

func (b *builder) Init() *Command { return nil }

func (b *builder) Done() {}

func (b *builder) Visit(node calliope.Node, path []string, parent *Command) *Command {
	command := &Command{
		Name:        node.CLIName(),
		Release:     node.ReleaseTrack().ID,
		Hidden:      node.Hidden(),
		Group:       node.Kind() == calliope.KindGroup,
		Capsule:     node.ShortHelp(),
		Description: description(node),
		parent:      parent,
	}
	// A GA node shared into a release track is exported under that
	// track.
	if parent != nil && parent.Release != calliope.GA.ID && command.Release == calliope.GA.ID {
		command.Release = parent.Release
	}
	if len(path) > 1 && path[1] == "internal" {
		command.Release = "INTERNAL"
	}

	for _, argument := range node.Args().Flags() {
		if argument.Hidden && !b.hidden {
			continue
		}
		name := argument.FlagName()
		if command.inherited(name) {
			continue
		}
		if command.Flags == nil {
			command.Flags = make(map[string]Flag)
		}
		command.Flags[name] = exportFlag(argument)
	}
	for _, argument := range node.Args().Positionals() {
		command.Positionals = append(command.Positionals, exportPositional(argument))
	}

	if parent != nil {
		if parent.Commands == nil {
			parent.Commands = make(map[string]*Command)
		}
		parent.Commands[command.Name] = command
	}
	return command
}

// description is the long help when it says more than the summary.
func description(node calliope.Node) string {
	if long := node.LongHelp(); long != node.ShortHelp() {
		return long
	}
	return ""
}

func exportFlag(argument *calliope.Argument) Flag {
	flag := Flag{
		Type:        argument.Kind.String(),
		Name:        argument.FlagName(),
		Required:    argument.Required,
		Hidden:      argument.Hidden,
		Default:     exportDefault(argument.Default),
		Choices:     argument.Choices,
		Description: strings.TrimSpace(argument.Help),
	}
	if argument.Kind != calliope.ValueBool {
		flag.Value = argument.DisplayMetavar()
	}
	return flag
}

// exportDefault renders defaults as plain data. Durations become their
// string form so every format round-trips them identically.
func exportDefault(value any) any {
	if duration, ok := value.(time.Duration); ok {
		return duration.String()
	}
	return value
}

func exportPositional(argument *calliope.Argument) Positional {
	positional := Positional{
		Name:        strings.ReplaceAll(argument.Dest, "_", "-"),
		Value:       argument.DisplayMetavar(),
		Description: strings.TrimSpace(argument.Help),
	}
	switch argument.Nargs {
	case "?":
		positional.CountMin, positional.CountMax = 0, 1
	case "*":
		positional.CountMin, positional.CountMax = 0, 0
	case "+":
		positional.CountMin, positional.CountMax = 1, 0
	default:
		positional.CountMin, positional.CountMax = 1, 1
	}
	return positional
}
