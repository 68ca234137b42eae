// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clitree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/calliope/lib/codec"
)

const (
	cacheMagic   = "CLTR"
	cacheVersion = 1

	// headerSize is magic, version, compression, size, digest.
	headerSize = 4 + 1 + 1 + 8 + 32

	// maxCacheSize bounds the declared uncompressed size so a corrupt
	// header cannot trigger a huge allocation.
	maxCacheSize = 256 << 20
)

// ErrCorruptCache is wrapped by ReadCache and UnmarshalCache errors for
// files that are not intact caches.
var ErrCorruptCache = errors.New("corrupt command tree cache")

// MarshalCache returns the cache file form of tree.
func MarshalCache(tree *Command, compression Compression) ([]byte, error) {
	encoded, err := codec.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encoding tree: %w", err)
	}
	payload, used, err := compress(encoded, compression)
	if err != nil {
		return nil, err
	}

	digest := blake3.Sum256(encoded)
	data := make([]byte, headerSize, headerSize+len(payload))
	copy(data, cacheMagic)
	data[4] = cacheVersion
	data[5] = byte(used)
	binary.BigEndian.PutUint64(data[6:14], uint64(len(encoded)))
	copy(data[14:headerSize], digest[:])
	return append(data, payload...), nil
}

// UnmarshalCache verifies and decodes a cache file's contents.
func UnmarshalCache(data []byte) (*Command, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptCache, len(data))
	}
	if string(data[:4]) != cacheMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptCache, data[:4])
	}
	if data[4] != cacheVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptCache, data[4])
	}
	size := binary.BigEndian.Uint64(data[6:14])
	if size > maxCacheSize {
		return nil, fmt.Errorf("%w: declared size %d exceeds %d", ErrCorruptCache, size, maxCacheSize)
	}

	encoded, err := decompress(data[headerSize:], Compression(data[5]), int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	digest := blake3.Sum256(encoded)
	if !bytes.Equal(digest[:], data[14:headerSize]) {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCorruptCache)
	}

	var tree Command
	if err := codec.Unmarshal(encoded, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	tree.link(nil)
	return &tree, nil
}

// WriteCache writes tree to path atomically.
func WriteCache(path string, tree *Command, compression Compression) error {
	data, err := MarshalCache(tree, compression)
	if err != nil {
		return err
	}

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", directory, err)
	}
	file, err := os.CreateTemp(directory, ".clitree-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary cache file: %w", err)
	}
	temporaryPath := file.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing cache: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temporary cache file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("renaming cache into place at %s: %w", path, err)
	}
	success = true
	return nil
}

// ReadCache reads and verifies the cache at path.
func ReadCache(path string) (*Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	tree, err := UnmarshalCache(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// CacheCompression reports the compression recorded in a cache
// header.
func CacheCompression(data []byte) (Compression, error) {
	if len(data) < headerSize || string(data[:4]) != cacheMagic {
		return 0, ErrCorruptCache
	}
	return Compression(data[5]), nil
}
