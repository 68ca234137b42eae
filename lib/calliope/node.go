// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// NodeKind distinguishes the two node variants.
type NodeKind int

const (
	KindGroup NodeKind = iota + 1
	KindLeaf
)

func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindLeaf:
		return "command"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a point in the command tree: a [*Group] or a [*Leaf].
type Node interface {
	Kind() NodeKind

	// Name is the underscore form used in module paths and bound
	// attribute lookups ("list_commands").
	Name() string

	// CLIName is the dash form typed on the command line
	// ("list-commands").
	CLIName() string

	// Path is the canonical CLI path from the root, root first.
	Path() []string

	ShortHelp() string
	LongHelp() string
	Examples() []Example
	Hidden() bool
	ReleaseTrack() ReleaseTrack

	// ReleaseTracks returns the tracks the node's module declared
	// itself valid in; nil means every track.
	ReleaseTracks() []ReleaseTrack

	// Parent is the group the node was loaded under; nil for the root.
	// A node copied into a release track keeps its GA parent.
	Parent() *Group

	// Args is the node's argument declaration.
	Args() *ArgumentInterceptor

	// ConfigHooks is the hook chain in effect for the node's subtree.
	ConfigHooks() *ConfigHooks

	// CreateNewArgs validates supplied against this node's declaration
	// and returns a fresh argument set: this node's defaults, then
	// current, then supplied. With ignoreUnknown, keys the node did not
	// declare are dropped before validation. current is never modified.
	CreateNewArgs(supplied map[string]any, current Args, ignoreUnknown bool) (Args, error)

	sealed()
}

// Example is a usage example shown in help output.
type Example struct {
	Description string
	Command     string
}

// Execution is everything a leaf's Run and Display functions receive
// for one invocation.
type Execution struct {
	Context     context.Context
	Args        Args
	ToolContext ToolContext
	Config      Config

	// CommandPath is the path the command was reached by, which
	// differs from the leaf's canonical Path when it was invoked
	// through a release track.
	CommandPath []string

	// EntryPoint is the root of the interactive binder, for commands
	// that inspect or call into the tree.
	EntryPoint *UnboundGroup

	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// RunFunc is a leaf's handler.
type RunFunc func(execution *Execution) (any, error)

// DisplayFunc renders a successful result.
type DisplayFunc func(execution *Execution, result any) error

type nodeBase struct {
	name      string
	path      []string
	shortHelp string
	longHelp  string
	examples  []Example
	hidden    bool
	track     ReleaseTrack
	valid     []ReleaseTrack
	parent    *Group
	args      *ArgumentInterceptor
	hooks     *ConfigHooks
}

func (n *nodeBase) Name() string                  { return n.name }
func (n *nodeBase) CLIName() string               { return cliName(n.name) }
func (n *nodeBase) Path() []string                { return slices.Clone(n.path) }
func (n *nodeBase) ShortHelp() string             { return n.shortHelp }
func (n *nodeBase) LongHelp() string              { return n.longHelp }
func (n *nodeBase) Examples() []Example           { return slices.Clone(n.examples) }
func (n *nodeBase) Hidden() bool                  { return n.hidden }
func (n *nodeBase) ReleaseTrack() ReleaseTrack    { return n.track }
func (n *nodeBase) ReleaseTracks() []ReleaseTrack { return slices.Clone(n.valid) }
func (n *nodeBase) Parent() *Group                { return n.parent }
func (n *nodeBase) Args() *ArgumentInterceptor    { return n.args }
func (n *nodeBase) ConfigHooks() *ConfigHooks     { return n.hooks }
func (n *nodeBase) sealed()                       {}

func (n *nodeBase) CreateNewArgs(supplied map[string]any, current Args, ignoreUnknown bool) (Args, error) {
	if ignoreUnknown {
		known := make(map[string]any, len(supplied))
		for key, value := range supplied {
			if n.args.HasDest(key) {
				known[key] = value
			}
		}
		supplied = known
	}
	if err := n.args.ValidateArgs(supplied); err != nil {
		return Args{}, err
	}

	merged := n.args.Defaults()
	maps.Copy(merged, current.values)
	maps.Copy(merged, supplied)
	return Args{values: merged}, nil
}

// Group is an inner node of the command tree.
type Group struct {
	nodeBase
	filter     ContextFilter
	children   []Node
	childIndex map[string]Node

	// withheld holds GA-tree children whose modules exclude GA. They
	// are offered to the release tracks they declare.
	withheld []Node
}

func (*Group) Kind() NodeKind { return KindGroup }

// Children returns the group's children in load order.
func (g *Group) Children() []Node {
	return slices.Clone(g.children)
}

// Child returns the child with the given name. Dash and underscore
// forms are equivalent.
func (g *Group) Child(name string) (Node, bool) {
	child, ok := g.childIndex[moduleName(name)]
	return child, ok
}

// IsValidSubName reports whether name selects a child.
func (g *Group) IsValidSubName(name string) bool {
	_, ok := g.Child(name)
	return ok
}

// Groups returns the child groups in load order.
func (g *Group) Groups() []*Group {
	var groups []*Group
	for _, child := range g.children {
		if group, ok := child.(*Group); ok {
			groups = append(groups, group)
		}
	}
	return groups
}

// Leaves returns the child commands in load order.
func (g *Group) Leaves() []*Leaf {
	var leaves []*Leaf
	for _, child := range g.children {
		if leaf, ok := child.(*Leaf); ok {
			leaves = append(leaves, leaf)
		}
	}
	return leaves
}

// Filter returns the group's own context filter, or nil.
func (g *Group) Filter() ContextFilter { return g.filter }

func (g *Group) addChild(child Node) error {
	if _, exists := g.childIndex[child.Name()]; exists {
		return layoutErrorf("[%s] already has a child named [%s]", joinPath(g.path), child.CLIName())
	}
	g.children = append(g.children, child)
	g.childIndex[child.Name()] = child
	return nil
}

// Leaf is a runnable command.
type Leaf struct {
	nodeBase
	run     RunFunc
	display DisplayFunc
}

func (*Leaf) Kind() NodeKind { return KindLeaf }

// cliName converts a module name to the form typed on the command line.
func cliName(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// moduleName converts a command-line name to the module form.
func moduleName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// splitHelp separates a module help text into its first line and the
// dedented remainder. The long help falls back to the short help.
func splitHelp(text string) (short, long string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	first, rest, _ := strings.Cut(text, "\n")
	short = strings.TrimSpace(first)
	long = strings.TrimSpace(dedent(rest))
	if long == "" {
		long = short
	}
	return short, long
}

// dedent removes the whitespace prefix common to every non-blank line.
func dedent(text string) string {
	lines := strings.Split(text, "\n")
	prefix := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if prefix < 0 || indent < prefix {
			prefix = indent
		}
	}
	if prefix <= 0 {
		return text
	}
	for i, line := range lines {
		if len(line) >= prefix {
			lines[i] = line[prefix:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
