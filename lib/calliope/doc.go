// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package calliope builds a hierarchical command-line interface from a
// registration table of loosely coupled command modules.
//
// A [Registry] maps dotted module paths ("compute.instances.list") to
// either a [GroupModule] or a [CommandModule]. A [CLILoader] turns the
// registry into a tree of [Node] values ([*Group] inner nodes and
// [*Leaf] commands), folding release tracks ([Alpha], [Beta]) and
// explicitly mounted modules into the tree. [CLILoader.Generate]
// returns a [*CLI], which is immutable and safe for concurrent use.
//
// Every node owns an [ArgumentInterceptor] that records the arguments
// the module declared. Parsing goes through a fresh [pflag.FlagSet] per
// invocation; values are then walked down the tree with
// [Node.CreateNewArgs], each level validating and merging its own
// arguments on top of the ones resolved above it. A group may also
// contribute a [ContextFilter] which runs, root to leaf, before the
// leaf's Run function.
//
// There are two ways to drive a tree:
//
//   - [CLI.Execute] and [CLI.Run] parse an argv vector. Execute returns
//     errors unmodified; Run is the process entry point and turns
//     errors into a printed "(command.path) message" and an exit code.
//
//   - [CLI.EntryPoint] returns an [*UnboundGroup] for library use:
//
//	root := cli.EntryPoint()
//	bound, _ := root.Bind(map[string]any{"project": "demo"})
//	ref, _ := bound.Resolve("compute")
//	...
//	result, err := command.Call(ctx, map[string]any{"zone": "us-east1-b"})
//
// When a user types an unknown command, flag, or attribute name, the
// error carries the closest known name (Levenshtein distance <= 3),
// computed in suggest.go.
package calliope
