// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the shared CBOR configuration.
//
// JSON and YAML are the human-facing formats: CLI output, the tree
// exports under meta commands, persisted user config, and manifests.
// CBOR is the compact format for files only programs read, such as the
// command-tree cache. Every package encodes CBOR through this package
// so the same value always produces the same bytes, which lets caches
// be compared and digested.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are exported as both JSON and CBOR carry `json` tags and
// no `cbor` tags; fxamacker/cbor reads the `json` tags when `cbor` tags
// are absent. Do not put both on one field.
package codec
