// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"cmp"
	"slices"
)

// Visitor receives every node of a walk. T is the value threaded from a
// group to its children: Visit for a group returns the parent value
// its children are visited with.
type Visitor[T any] interface {
	// Init returns the parent value for the root.
	Init() T

	// Visit is called in depth-first preorder. path is the path the
	// node was reached by, which differs from node.Path() for nodes
	// shared into a release track.
	Visit(node Node, path []string, parent T) T

	// Done is called after the last node.
	Done()
}

// WalkOptions filters a walk.
type WalkOptions struct {
	// Hidden includes hidden groups and commands.
	Hidden bool

	// Restrict limits the walk to the root and the listed top-level
	// children (CLI names). Empty means no restriction.
	Restrict []string
}

// Walk visits root and its subtree depth first, commands before groups
// at each level and each sorted by name, and returns the value Visit
// returned for root.
func Walk[T any](root *Group, visitor Visitor[T], options WalkOptions) T {
	result := walkGroup(root, []string{root.CLIName()}, visitor, visitor.Init(), options, options.Restrict)
	visitor.Done()
	return result
}

func walkGroup[T any](group *Group, path []string, visitor Visitor[T], parent T, options WalkOptions, restrict []string) T {
	value := visitor.Visit(group, path, parent)

	include := func(node Node) bool {
		if !options.Hidden && node.Hidden() {
			return false
		}
		return len(restrict) == 0 || slices.Contains(restrict, node.CLIName())
	}
	byName := func(a, b Node) int { return cmp.Compare(a.Name(), b.Name()) }

	leaves := make([]Node, 0, len(group.children))
	groups := make([]Node, 0, len(group.children))
	for _, child := range group.children {
		if !include(child) {
			continue
		}
		if child.Kind() == KindLeaf {
			leaves = append(leaves, child)
		} else {
			groups = append(groups, child)
		}
	}
	slices.SortFunc(leaves, byName)
	slices.SortFunc(groups, byName)

	for _, leaf := range leaves {
		visitor.Visit(leaf, append(slices.Clone(path), leaf.CLIName()), value)
	}
	for _, child := range groups {
		walkGroup(child.(*Group), append(slices.Clone(path), child.CLIName()), visitor, value, options, nil)
	}
	return value
}

// VisitFunc adapts a function to a [Visitor] whose parent value is the
// parent's path.
type VisitFunc func(node Node, path []string) error

type funcVisitor struct {
	fn  VisitFunc
	err error
}

func (v *funcVisitor) Init() []string { return nil }

func (v *funcVisitor) Visit(node Node, path []string, _ []string) []string {
	if v.err == nil {
		v.err = v.fn(node, path)
	}
	return path
}

func (v *funcVisitor) Done() {}

// WalkFunc calls fn for every node of the walk and returns the first
// error fn returned. Nodes after an error are still traversed but fn
// is not called for them.
func WalkFunc(root *Group, options WalkOptions, fn VisitFunc) error {
	visitor := &funcVisitor{fn: fn}
	Walk[[]string](root, visitor, options)
	return visitor.err
}
