// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helpdoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/calliope/lib/calliope"
)

// Format selects the file type Generate writes.
type Format int

const (
	FormatMarkdown Format = iota
	FormatHTML
	FormatText
)

// Extension returns the file name extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatText:
		return ".txt"
	default:
		return ".md"
	}
}

// ParseFormat parses "markdown", "html", or "text".
func ParseFormat(name string) (Format, error) {
	switch name {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return 0, fmt.Errorf("unknown document format %q (want markdown, html, or text)", name)
	}
}

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Options
	Format Format

	// Width wraps FormatText output. Zero means 80.
	Width int

	// Restrict limits the walk to the listed top-level groups.
	Restrict []string
}

// Generate writes one document per node under root into directory.
// Files are named by the command path joined with underscores, as in
// "sky_compute_instances_list.md". It returns the written paths in
// walk order.
func Generate(root *calliope.Group, directory string, options GenerateOptions) ([]string, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", directory, err)
	}
	visitor := &generator{directory: directory, options: options}
	calliope.Walk[string](root, visitor, calliope.WalkOptions{Hidden: options.Hidden, Restrict: options.Restrict})
	return visitor.written, visitor.err
}

// generator is a walk visitor. Its parent value is the file name stem
// of the parent node.
type generator struct {
	directory string
	options   GenerateOptions
	written   []string
	err       error
}

func (g *generator) Init() string { return "" }

func (g *generator) Done() {}

func (g *generator) Visit(node calliope.Node, path []string, parent string) string {
	stem := node.CLIName()
	if parent != "" {
		stem = parent + "_" + stem
	}
	if g.err != nil {
		return stem
	}
	content, err := g.render(node, path)
	if err != nil {
		g.err = fmt.Errorf("rendering %s: %w", strings.Join(path, " "), err)
		return stem
	}
	filePath := filepath.Join(g.directory, stem+g.options.Format.Extension())
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		g.err = fmt.Errorf("writing %s: %w", filePath, err)
		return stem
	}
	g.written = append(g.written, filePath)
	return stem
}

func (g *generator) render(node calliope.Node, path []string) (string, error) {
	markdown := Markdown(node, path, g.options.Options)
	switch g.options.Format {
	case FormatHTML:
		body, err := RenderHTML(markdown)
		if err != nil {
			return "", err
		}
		return htmlPage(strings.Join(path, " "), body), nil
	case FormatText:
		return RenderTerminal(markdown, TerminalOptions{Width: g.options.Width, Profile: termenv.Ascii}), nil
	default:
		return markdown, nil
	}
}
