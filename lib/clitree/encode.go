// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clitree

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/calliope/lib/codec"
)

// Format is an export encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Formats lists the names ParseFormat accepts.
func Formats() []string {
	return []string{"json", "yaml", "cbor"}
}

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("unknown tree format %q (want json, yaml, or cbor)", name)
	}
}

// Encode writes tree to w in format. JSON is indented; CBOR uses the
// deterministic encoding from lib/codec.
func Encode(w io.Writer, tree *Command, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(tree)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(tree); err != nil {
			return fmt.Errorf("encoding tree as yaml: %w", err)
		}
		return encoder.Close()
	case FormatCBOR:
		return codec.NewEncoder(w).Encode(tree)
	default:
		return fmt.Errorf("unsupported tree format %s", format)
	}
}

// Decode reads a tree written by Encode. Parent links are restored.
func Decode(r io.Reader, format Format) (*Command, error) {
	var tree Command
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&tree)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&tree)
	case FormatCBOR:
		err = codec.NewDecoder(r).Decode(&tree)
	default:
		return nil, fmt.Errorf("unsupported tree format %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s tree: %w", format, err)
	}
	tree.link(nil)
	return &tree, nil
}

func (c *Command) link(parent *Command) {
	c.parent = parent
	for _, child := range c.Commands {
		child.link(c)
	}
}
