// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package userconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"
)

// Store reads and writes one config file. A Store serialises its own
// loads and saves; separate processes are not coordinated.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Load returns the stored object.
func (s *Store) Load() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", s.path, err)
	}
	return Parse(data)
}

// Parse decodes a config document. Empty input and a JSON null both
// decode to an empty object.
func Parse(data []byte) (map[string]any, error) {
	stripped := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(stripped) == 0 {
		return map[string]any{}, nil
	}
	var values map[string]any
	if err := json.Unmarshal(stripped, &values); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// Save replaces the stored object with values.
func (s *Store) Save(values map[string]any) error {
	if values == nil {
		values = map[string]any{}
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	directory := filepath.Dir(s.path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", directory, err)
	}

	file, err := os.CreateTemp(directory, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary config file: %w", err)
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
		return fmt.Errorf("writing config: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing config: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temporary config file: %w", err)
	}
	if err := os.Rename(temporaryPath, s.path); err != nil {
		return fmt.Errorf("renaming config into place at %s: %w", s.path, err)
	}

	success = true
	return nil
}
