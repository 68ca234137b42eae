// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helpdoc

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/calliope/lib/calliope"
)

// Options controls which parts of the tree a document shows.
type Options struct {
	// Hidden includes hidden flags and children.
	Hidden bool
}

// Markdown returns the reference document for node, reached by path
// (CLI names, root first). Release track tags and notices follow the
// track the path runs through.
func Markdown(node calliope.Node, path []string, options Options) string {
	doc := &document{node: node, path: path, options: options}
	doc.track = calliope.EffectiveTrack(node, calliope.ReleaseTrackForPath(rootOf(node), path))
	doc.generate()
	return strings.TrimSpace(doc.out.String()) + "\n"
}

type document struct {
	node    calliope.Node
	path    []string
	track   calliope.ReleaseTrack
	options Options
	out     strings.Builder
}

func rootOf(node calliope.Node) *calliope.Group {
	for node.Parent() != nil {
		node = node.Parent()
	}
	root, _ := node.(*calliope.Group)
	return root
}

func (d *document) section(name string) {
	fmt.Fprintf(&d.out, "\n\n# %s\n\n", name)
}

func (d *document) commandName() string {
	return strings.Join(d.path, " ")
}

func (d *document) generate() {
	d.section("NAME")
	fmt.Fprintf(&d.out, "%s - %s\n", d.commandName(), d.node.ShortHelp())
	d.synopsis()

	if description := d.node.LongHelp(); description != "" {
		d.section("DESCRIPTION")
		d.out.WriteString(d.track.HelpTag + description + "\n")
	}
	d.positionals()
	d.flags()

	if group, ok := d.node.(*calliope.Group); ok {
		d.children("GROUP", nodes(group.Groups()))
		d.children("COMMAND", nodes(group.Leaves()))
	}
	d.examples()
	d.notes()
}

func (d *document) synopsis() {
	d.section("SYNOPSIS")
	fmt.Fprintf(&d.out, "`%s`", d.commandName())
	for _, argument := range d.node.Args().Positionals() {
		d.out.WriteString(" " + positionalDisplay(argument))
	}

	if group, ok := d.node.(*calliope.Group); ok {
		groups, commands := len(d.visible(nodes(group.Groups()))), len(d.visible(nodes(group.Leaves())))
		switch {
		case groups > 0 && commands > 0:
			d.out.WriteString(" _GROUP_ | _COMMAND_")
		case commands > 0:
			d.out.WriteString(" _COMMAND_")
		case groups > 0:
			d.out.WriteString(" _GROUP_")
		}
	}

	own, group, global := d.partitionFlags()
	for _, argument := range sortedFlags(append(own, group...)) {
		if argument.Required {
			d.out.WriteString(" " + flagDisplay(argument))
		} else {
			d.out.WriteString(" [" + flagDisplay(argument) + "]")
		}
	}
	if len(global) > 0 {
		d.out.WriteString(" [_GLOBAL-FLAG ..._]")
	}
	d.out.WriteString("\n")
}

func (d *document) positionals() {
	positionals := d.node.Args().Positionals()
	if len(positionals) == 0 {
		return
	}
	d.section("POSITIONAL ARGUMENTS")
	for _, argument := range positionals {
		d.definition(positionalDisplay(argument), details(argument))
	}
}

func (d *document) flags() {
	own, group, global := d.partitionFlags()
	for _, set := range []struct {
		title string
		flags []*calliope.Argument
	}{{"FLAGS", own}, {"GROUP FLAGS", group}} {
		if len(set.flags) == 0 {
			continue
		}
		d.section(set.title)
		for _, argument := range sortedFlags(set.flags) {
			d.definition(flagDisplay(argument), details(argument))
		}
	}
	if len(global) > 0 {
		d.section("GLOBAL FLAGS")
		fmt.Fprintf(&d.out, "Run `%s --help` for a description of flags available to all commands.\n", d.path[0])
	}
}

// partitionFlags splits the flags in scope into the node's own flags,
// flags inherited from groups below the root, and root flags. Root
// flags are listed with the node's own flags when the node is the root.
func (d *document) partitionFlags() (own, group, global []*calliope.Argument) {
	own = d.visibleFlags(d.node.Args().Flags())
	seen := make(map[string]bool)
	for _, argument := range own {
		seen[argument.FlagName()] = true
	}
	for ancestor := d.node.Parent(); ancestor != nil; ancestor = ancestor.Parent() {
		for _, argument := range d.visibleFlags(ancestor.Args().Flags()) {
			if seen[argument.FlagName()] {
				continue
			}
			seen[argument.FlagName()] = true
			if ancestor.Parent() == nil {
				global = append(global, argument)
			} else {
				group = append(group, argument)
			}
		}
	}
	return own, group, global
}

func (d *document) visibleFlags(flags []*calliope.Argument) []*calliope.Argument {
	if d.options.Hidden {
		return flags
	}
	var visible []*calliope.Argument
	for _, argument := range flags {
		if !argument.Hidden {
			visible = append(visible, argument)
		}
	}
	return visible
}

// visible filters hidden children unless hidden ones were requested or
// the node itself is hidden.
func (d *document) visible(children []calliope.Node) []calliope.Node {
	if d.options.Hidden || d.node.Hidden() {
		return children
	}
	var visible []calliope.Node
	for _, child := range children {
		if !child.Hidden() {
			visible = append(visible, child)
		}
	}
	return visible
}

func (d *document) children(kind string, children []calliope.Node) {
	children = d.visible(children)
	if len(children) == 0 {
		return
	}
	slices.SortFunc(children, func(a, b calliope.Node) int { return cmp.Compare(a.CLIName(), b.CLIName()) })
	d.section(kind + "S")
	fmt.Fprintf(&d.out, "_%s_ is one of the following:\n\n", kind)
	for _, child := range children {
		d.definition("**"+child.CLIName()+"**", calliope.EffectiveTrack(child, d.track).HelpTag+child.ShortHelp())
	}
}

func (d *document) examples() {
	examples := d.node.Examples()
	if len(examples) == 0 {
		return
	}
	d.section("EXAMPLES")
	for _, example := range examples {
		if example.Description != "" {
			fmt.Fprintf(&d.out, "%s:\n\n", strings.TrimSuffix(example.Description, ":"))
		}
		fmt.Fprintf(&d.out, "```sh\n$ %s\n```\n\n", example.Command)
	}
}

func (d *document) notes() {
	notice := d.track.Notice
	if !d.node.Hidden() && notice == "" {
		return
	}
	d.section("NOTES")
	if d.node.Hidden() {
		d.out.WriteString("This command is an internal implementation detail and may change or disappear without notice.\n\n")
	}
	if notice != "" {
		d.out.WriteString(notice + "\n")
	}
}

// definition writes one definition list entry.
func (d *document) definition(term, description string) {
	if description == "" {
		fmt.Fprintf(&d.out, "%s\n\n", term)
		return
	}
	lines := strings.Split(description, "\n")
	fmt.Fprintf(&d.out, "%s\n:   %s\n", term, lines[0])
	for _, line := range lines[1:] {
		if line == "" {
			d.out.WriteString("\n")
			continue
		}
		d.out.WriteString("    " + line + "\n")
	}
	d.out.WriteString("\n")
}

// flagDisplay renders a flag as **--name**=_VALUE_, with the shorthand
// first when there is one.
func flagDisplay(argument *calliope.Argument) string {
	name := "**--" + argument.FlagName() + "**"
	if argument.Short != "" {
		name = "**-" + argument.Short + "**, " + name
	}
	if argument.Kind == calliope.ValueBool {
		return name
	}
	return name + "=_" + argument.DisplayMetavar() + "_"
}

func positionalDisplay(argument *calliope.Argument) string {
	metavar := "_" + argument.DisplayMetavar() + "_"
	switch argument.Nargs {
	case "?":
		return "[" + metavar + "]"
	case "*":
		return "[" + metavar + " ...]"
	case "+":
		return metavar + " [" + metavar + " ...]"
	default:
		return metavar
	}
}

// details is the help text of an argument followed by its constraints.
func details(argument *calliope.Argument) string {
	var parts []string
	if help := strings.TrimSpace(argument.Help); help != "" {
		parts = append(parts, help)
	}
	if len(argument.Choices) > 0 {
		choices := make([]string, len(argument.Choices))
		for i, choice := range argument.Choices {
			choices[i] = "`" + choice + "`"
		}
		parts = append(parts, fmt.Sprintf("_%s_ must be one of: %s.", argument.DisplayMetavar(), strings.Join(choices, ", ")))
	}
	if bounds := argument.BoundsHelp(); bounds != "" {
		parts = append(parts, fmt.Sprintf("_%s_ must be %s.", argument.DisplayMetavar(), bounds))
	}
	if argument.Default != nil && argument.Kind != calliope.ValueBool {
		parts = append(parts, fmt.Sprintf("Default: `%v`.", argument.Default))
	}
	if argument.Required && !argument.Positional {
		parts = append(parts, "This flag is required.")
	}
	return strings.Join(parts, " ")
}

func sortedFlags(flags []*calliope.Argument) []*calliope.Argument {
	sorted := slices.Clone(flags)
	slices.SortFunc(sorted, func(a, b *calliope.Argument) int { return cmp.Compare(a.FlagName(), b.FlagName()) })
	return sorted
}

func nodes[T calliope.Node](children []T) []calliope.Node {
	converted := make([]calliope.Node, len(children))
	for i, child := range children {
		converted[i] = child
	}
	return converted
}
