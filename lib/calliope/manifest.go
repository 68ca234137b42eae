// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the declarative layout of a CLI: which module is the
// root, which release tracks exist, and which modules are mounted
// where. It is the file form of the calls a program would otherwise
// make on a [CLILoader].
//
//	name: skyctl
//	root: skyctl
//	allow_non_existing: true
//	tracks:
//	  - track: alpha
//	    module: skyctl_alpha
//	    component: alpha
//	modules:
//	  - path: meta
//	    module: skyctl_meta
type Manifest struct {
	Name             string           `yaml:"name"`
	Root             string           `yaml:"root"`
	AllowNonExisting bool             `yaml:"allow_non_existing"`
	Tracks           []ManifestTrack  `yaml:"tracks"`
	Modules          []ManifestModule `yaml:"modules"`
}

// ManifestTrack mounts a release track.
type ManifestTrack struct {
	// Track is the track prefix: "alpha" or "beta".
	Track     string `yaml:"track"`
	Module    string `yaml:"module"`
	Component string `yaml:"component"`
}

// ManifestModule mounts a module at a dotted command path.
type ManifestModule struct {
	Path      string `yaml:"path"`
	Module    string `yaml:"module"`
	Component string `yaml:"component"`
}

// LoadManifest decodes and validates a manifest. Unknown keys are
// rejected.
func LoadManifest(reader io.Reader) (*Manifest, error) {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// LoadManifestFile reads a manifest from path.
func LoadManifestFile(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()
	manifest, err := LoadManifest(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return manifest, nil
}

// Validate checks the manifest for missing fields and unknown tracks.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Root == "" {
		return fmt.Errorf("manifest: root is required")
	}
	for i, track := range m.Tracks {
		if _, ok := releaseTrackForManifest(track.Track); !ok {
			return fmt.Errorf("manifest: tracks[%d]: unknown release track %q", i, track.Track)
		}
		if track.Module == "" {
			return fmt.Errorf("manifest: tracks[%d]: module is required", i)
		}
	}
	for i, module := range m.Modules {
		if module.Path == "" || module.Module == "" {
			return fmt.Errorf("manifest: modules[%d]: path and module are required", i)
		}
	}
	return nil
}

func releaseTrackForManifest(prefix string) (ReleaseTrack, bool) {
	track, ok := ReleaseTrackFromPrefix(prefix)
	if !ok || track.IsGA() {
		return ReleaseTrack{}, false
	}
	return track, true
}

// LoaderOptions returns base with the manifest's name, root, and
// allow_non_existing applied.
func (m *Manifest) LoaderOptions(base LoaderOptions) LoaderOptions {
	base.Name = m.Name
	base.RootModule = m.Root
	base.AllowNonExistingModules = m.AllowNonExisting
	return base
}

// Apply registers the manifest's tracks and modules on loader.
func (m *Manifest) Apply(loader *CLILoader) error {
	for _, entry := range m.Tracks {
		track, _ := releaseTrackForManifest(entry.Track)
		if err := loader.AddReleaseTrack(track, entry.Module, entry.Component); err != nil {
			return err
		}
	}
	for _, entry := range m.Modules {
		if err := loader.AddModule(entry.Path, entry.Module, entry.Component); err != nil {
			return err
		}
	}
	return nil
}

// NewLoader builds a loader configured by the manifest on top of base.
func (m *Manifest) NewLoader(base LoaderOptions) (*CLILoader, error) {
	loader, err := NewCLILoader(m.LoaderOptions(base))
	if err != nil {
		return nil, err
	}
	if err := m.Apply(loader); err != nil {
		return nil, err
	}
	return loader, nil
}
