// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package meta holds the skyctl commands that describe skyctl itself:
// the command listing, the machine-readable tree export and its cache,
// and the reference document generator.
package meta

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bureau-foundation/calliope/lib/calliope"
	"github.com/bureau-foundation/calliope/lib/clitree"
	"github.com/bureau-foundation/calliope/lib/codec"
	"github.com/bureau-foundation/calliope/lib/helpdoc"
)

// Register adds the meta group under modulePath.
func Register(registry *calliope.Registry, modulePath string) {
	registry.MustRegister(modulePath, calliope.GroupModule{
		Help: "Inspect the skyctl command tree.",
	})
	registry.MustRegister(modulePath+".list_commands", calliope.CommandModule{
		Help: "List every command path.",
		Args: func(parser *calliope.ArgumentInterceptor) error {
			if err := addWalkArgs(parser); err != nil {
				return err
			}
			return parser.AddArgument("--groups", calliope.ArgOptions{
				Kind: calliope.ValueBool,
				Help: "Include command groups as well as commands.",
			})
		},
		Run:     runListCommands,
		Display: printLines,
	})
	registry.MustRegister(modulePath+".cli_tree", calliope.CommandModule{
		Help: `Export the command tree.

            Writes the tree of groups, commands, flags, and positional
            arguments in a machine-readable format. With --cache the
            tree is written as a compressed, checksummed cache file
            instead.`,
		Examples: []calliope.Example{
			{Description: "Write the tree as YAML", Command: "skyctl meta cli-tree --format=yaml --output=tree.yaml"},
			{Description: "Refresh the completion cache", Command: "skyctl meta cli-tree --cache=$HOME/.cache/skyctl/tree.bin"},
		},
		Args:    cliTreeArgs,
		Run:     runCLITree,
		Display: printLines,
	})
	registry.MustRegister(modulePath+".inspect_cache", calliope.CommandModule{
		Help: `Verify a command tree cache file.

            Checks the header and digest of a file written by
            cli-tree --cache and reports what it holds. With --diagnose
            the decoded tree is printed in CBOR diagnostic notation.`,
		Examples: []calliope.Example{
			{Command: "skyctl meta inspect-cache $HOME/.cache/skyctl/tree.bin --diagnose"},
		},
		Args: func(parser *calliope.ArgumentInterceptor) error {
			if err := parser.AddArgument("cache", calliope.ArgOptions{
				Metavar: "FILE",
				Help:    "Cache file to inspect.",
			}); err != nil {
				return err
			}
			return parser.AddArgument("--diagnose", calliope.ArgOptions{
				Kind: calliope.ValueBool,
				Help: "Print the tree in CBOR diagnostic notation.",
			})
		},
		Run:     runInspectCache,
		Display: printLines,
	})
	registry.MustRegister(modulePath+".help_docs", calliope.CommandModule{
		Help: "Generate reference documents for every command.",
		Args: func(parser *calliope.ArgumentInterceptor) error {
			if err := addWalkArgs(parser); err != nil {
				return err
			}
			if err := parser.AddArgument("--directory", calliope.ArgOptions{
				Required: true,
				Help:     "Directory to write the documents into.",
			}); err != nil {
				return err
			}
			return parser.AddArgument("--format", calliope.ArgOptions{
				Default: "markdown",
				Choices: []string{"markdown", "html", "text"},
				Help:    "Document format.",
			})
		},
		Run:     runHelpDocs,
		Display: printLines,
	})
}

func addWalkArgs(parser *calliope.ArgumentInterceptor) error {
	if err := parser.AddArgument("--hidden", calliope.ArgOptions{
		Kind: calliope.ValueBool,
		Help: "Include hidden groups, commands, and flags.",
	}); err != nil {
		return err
	}
	return parser.AddArgument("--restrict", calliope.ArgOptions{
		Kind:    calliope.ValueStringSlice,
		Metavar: "GROUP",
		Help:    "Only walk these top-level groups. Repeatable.",
	})
}

func walkOptions(args calliope.Args) calliope.WalkOptions {
	return calliope.WalkOptions{Hidden: args.Bool("hidden"), Restrict: args.Strings("restrict")}
}

func root(execution *calliope.Execution) *calliope.Group {
	return execution.EntryPoint.Node()
}

func runListCommands(execution *calliope.Execution) (any, error) {
	var paths []string
	groups := execution.Args.Bool("groups")
	err := calliope.WalkFunc(root(execution), walkOptions(execution.Args), func(node calliope.Node, path []string) error {
		if node.Kind() == calliope.KindGroup && !groups {
			return nil
		}
		paths = append(paths, strings.Join(path, " "))
		return nil
	})
	return paths, err
}

func cliTreeArgs(parser *calliope.ArgumentInterceptor) error {
	if err := addWalkArgs(parser); err != nil {
		return err
	}
	if err := parser.AddArgument("--format", calliope.ArgOptions{
		Default: clitree.FormatJSON.String(),
		Choices: clitree.Formats(),
		Help:    "Export format.",
	}); err != nil {
		return err
	}
	if err := parser.AddArgument("--output", calliope.ArgOptions{
		Metavar: "FILE",
		Help:    "Write the export to FILE instead of standard output.",
	}); err != nil {
		return err
	}
	if err := parser.AddArgument("--cache", calliope.ArgOptions{
		Metavar: "FILE",
		Help:    "Write a tree cache file to FILE.",
	}); err != nil {
		return err
	}
	return parser.AddArgument("--compression", calliope.ArgOptions{
		Default: clitree.CompressionZstd.String(),
		Choices: []string{clitree.CompressionNone.String(), clitree.CompressionLZ4.String(), clitree.CompressionZstd.String()},
		Help:    "Compression of the cache file.",
	})
}

func runCLITree(execution *calliope.Execution) (any, error) {
	tree := clitree.Build(root(execution), walkOptions(execution.Args))
	args := execution.Args

	if cachePath := args.String("cache"); cachePath != "" {
		compression, err := clitree.ParseCompression(args.String("compression"))
		if err != nil {
			return nil, calliope.Validation("%v", err)
		}
		if err := clitree.WriteCache(cachePath, tree, compression); err != nil {
			return nil, err
		}
		execution.Logger.Debug("wrote tree cache", "path", cachePath, "commands", tree.Count(), "compression", compression.String())
		return []string{fmt.Sprintf("Wrote %d commands to %s.", tree.Count(), cachePath)}, nil
	}

	format, err := clitree.ParseFormat(args.String("format"))
	if err != nil {
		return nil, calliope.Validation("%v", err)
	}
	outputPath := args.String("output")
	if outputPath == "" {
		return nil, clitree.Encode(execution.Stdout, tree, format)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", outputPath, err)
	}
	if err := clitree.Encode(file, tree, format); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", outputPath, err)
	}
	return nil, nil
}

func runInspectCache(execution *calliope.Execution) (any, error) {
	cachePath := execution.Args.String("cache")
	tree, err := clitree.ReadCache(cachePath)
	if errors.Is(err, clitree.ErrCorruptCache) {
		return nil, calliope.Validation("%w", err).WithHint("Rewrite it with: skyctl meta cli-tree --cache=%s", cachePath)
	}
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cachePath, err)
	}
	compression, err := clitree.CacheCompression(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cachePath, err)
	}
	lines := []string{fmt.Sprintf("%s: %d commands, %s compression.", cachePath, tree.Count(), compression)}
	if !execution.Args.Bool("diagnose") {
		return lines, nil
	}

	encoded, err := codec.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encoding tree: %w", err)
	}
	notation, err := codec.Diagnose(encoded)
	if err != nil {
		return nil, fmt.Errorf("diagnosing tree: %w", err)
	}
	return append(lines, notation), nil
}

func runHelpDocs(execution *calliope.Execution) (any, error) {
	format, err := helpdoc.ParseFormat(execution.Args.String("format"))
	if err != nil {
		return nil, calliope.Validation("%v", err)
	}
	options := walkOptions(execution.Args)
	written, err := helpdoc.Generate(root(execution), execution.Args.String("directory"), helpdoc.GenerateOptions{
		Options:  helpdoc.Options{Hidden: options.Hidden},
		Format:   format,
		Restrict: options.Restrict,
	})
	if err != nil {
		return nil, err
	}
	execution.Logger.Debug("generated help documents", "count", len(written), "format", execution.Args.String("format"))
	return []string{fmt.Sprintf("Wrote %d documents to %s.", len(written), execution.Args.String("directory"))}, nil
}

func printLines(execution *calliope.Execution, result any) error {
	lines, _ := result.([]string)
	for _, line := range lines {
		if _, err := fmt.Fprintln(execution.Stdout, line); err != nil {
			return err
		}
	}
	return nil
}
