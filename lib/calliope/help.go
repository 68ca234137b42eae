// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteUsage writes the structured usage text for the last node of
// nodes, reached by path. nodes runs from the root to the target; the
// flags of the nodes above the target are listed as inherited. Tags
// and notices follow the release track the path runs through.
func WriteUsage(w io.Writer, nodes []Node, path []string) {
	if len(nodes) == 0 {
		return
	}
	node := nodes[len(nodes)-1]
	name := describePath(path)
	track := EffectiveTrack(node, pathTrack(nodes))

	if help := node.LongHelp(); help != "" {
		fmt.Fprintf(w, "%s%s\n\n", track.HelpTag, help)
	}

	group, isGroup := node.(*Group)
	if isGroup {
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	} else {
		fmt.Fprintf(w, "Usage:\n  %s%s [flags]\n", name, positionalSynopsis(node.Args()))
	}

	if isGroup {
		writeChildren(w, "Groups", visibleGroups(group), track)
		writeChildren(w, "Commands", visibleLeaves(group), track)
	}

	if positionals := node.Args().Positionals(); len(positionals) > 0 {
		fmt.Fprintf(w, "\nPositional arguments:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, argument := range positionals {
			fmt.Fprintf(tw, "  %s\t%s\n", argument.DisplayMetavar(), argument.Help)
		}
		tw.Flush()
	}

	if usages := node.Args().FlagSet().FlagUsages(); usages != "" {
		fmt.Fprintf(w, "\nFlags:\n%s", usages)
	}
	fmt.Fprintf(w, "  -h, --help   Print a summary of this help and exit; --help prints the full reference.\n")

	var inherited strings.Builder
	for i := len(nodes) - 2; i >= 0; i-- {
		inherited.WriteString(nodes[i].Args().FlagSet().FlagUsages())
	}
	if inherited.Len() > 0 {
		fmt.Fprintf(w, "\nInherited flags:\n%s", inherited.String())
	}

	if examples := node.Examples(); len(examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range examples {
			if example.Description != "" {
				fmt.Fprintf(w, "  # %s\n", example.Description)
			}
			fmt.Fprintf(w, "  %s\n", example.Command)
			if example.Description != "" {
				fmt.Fprintln(w)
			}
		}
	}

	if notice := track.Notice; notice != "" {
		fmt.Fprintf(w, "\n%s\n", notice)
	}
	if isGroup {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

// positionalSynopsis renders the positionals of a usage line:
// " NAME [ZONE] [FILE ...]".
func positionalSynopsis(args *ArgumentInterceptor) string {
	var synopsis strings.Builder
	for _, argument := range args.Positionals() {
		metavar := argument.DisplayMetavar()
		switch argument.Nargs {
		case "?":
			fmt.Fprintf(&synopsis, " [%s]", metavar)
		case "*":
			fmt.Fprintf(&synopsis, " [%s ...]", metavar)
		case "+":
			fmt.Fprintf(&synopsis, " %s [%s ...]", metavar, metavar)
		default:
			fmt.Fprintf(&synopsis, " %s", metavar)
		}
	}
	return synopsis.String()
}

func writeChildren[T Node](w io.Writer, title string, children []T, track ReleaseTrack) {
	if len(children) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	for _, child := range children {
		fmt.Fprintf(tw, "  %s\t%s%s\n", child.CLIName(), EffectiveTrack(child, track).HelpTag, child.ShortHelp())
	}
	tw.Flush()
}

// visibleGroups returns the child groups usage lists. A hidden group
// lists all of them.
func visibleGroups(group *Group) []*Group {
	var groups []*Group
	for _, child := range group.Groups() {
		if group.Hidden() || !child.Hidden() {
			groups = append(groups, child)
		}
	}
	return groups
}

func visibleLeaves(group *Group) []*Leaf {
	var leaves []*Leaf
	for _, child := range group.Leaves() {
		if group.Hidden() || !child.Hidden() {
			leaves = append(leaves, child)
		}
	}
	return leaves
}
