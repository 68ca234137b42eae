// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clitree exports a generated command tree as data.
//
// [Build] walks a [calliope.CLI] root and produces a [Command] tree:
// every group and command with its help summary, release track, flags
// (excluding flags inherited from ancestors), and positionals. The tree
// is what shell completion, documentation generators, and other tools
// consume instead of loading the CLI itself.
//
// [Encode] writes the tree as JSON, YAML, or CBOR. [WriteCache] stores
// the CBOR form in a compact, integrity-checked file:
//
//	offset  size  field
//	0       4     magic "CLTR"
//	4       1     format version (1)
//	5       1     compression tag (0 none, 1 lz4, 2 zstd)
//	6       8     uncompressed size, big endian
//	14      32    BLAKE3-256 of the uncompressed CBOR
//	46      ...   payload
//
// [ReadCache] rejects files with the wrong magic or version, and any
// payload whose digest does not match.
package clitree
