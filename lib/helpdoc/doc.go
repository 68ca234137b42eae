// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package helpdoc generates reference documentation for the groups and
// commands of a [calliope.CLI].
//
// [Markdown] produces a man-page style document for one node: NAME,
// SYNOPSIS, DESCRIPTION, POSITIONAL ARGUMENTS, FLAGS, GROUP FLAGS,
// GLOBAL FLAGS, GROUPS, COMMANDS, EXAMPLES, and NOTES, each present
// only when it has content. Flags and child lists are goldmark
// definition lists.
//
// [RenderTerminal] renders that markdown for a terminal by walking the
// goldmark AST: paragraphs reflow to the terminal width, headings and
// terms are styled with lipgloss, and example blocks are highlighted
// with chroma. [RenderHTML] converts it to an HTML fragment.
//
// [Generate] walks a tree and writes one file per node.
package helpdoc
