// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Module is a registered command module: a [GroupModule] or a
// [CommandModule].
type Module interface {
	module()
}

// GroupModule declares a command group.
type GroupModule struct {
	// Help is the group's help text: a one-line summary, optionally
	// followed by a longer description.
	Help   string
	Hidden bool

	// Args declares the group's flags. Groups cannot take positionals.
	Args func(parser *ArgumentInterceptor) error

	// Filter adjusts the tool context for every command in the group.
	Filter ContextFilter

	// ReleaseTracks limits the tracks the group is loaded in. Empty
	// means every track.
	ReleaseTracks []ReleaseTrack
}

func (GroupModule) module() {}

// CommandModule declares a runnable command.
type CommandModule struct {
	Help     string
	Hidden   bool
	Examples []Example

	Args    func(parser *ArgumentInterceptor) error
	Run     RunFunc
	Display DisplayFunc

	// ReleaseTracks limits the tracks the command is loaded in. Empty
	// means every track.
	ReleaseTracks []ReleaseTrack
}

func (CommandModule) module() {}

// Registry is the registration table command modules are loaded from.
// Module paths are dotted: "surface.compute.instances.list". A module
// registered one segment below a group module is that group's child.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds module under modulePath.
func (r *Registry) Register(modulePath string, module Module) error {
	if module == nil {
		return fmt.Errorf("registering %q: module is nil", modulePath)
	}
	for _, segment := range strings.Split(modulePath, ".") {
		if segment == "" {
			return fmt.Errorf("registering %q: empty path segment", modulePath)
		}
	}
	switch typed := module.(type) {
	case CommandModule:
		if typed.Run == nil {
			return fmt.Errorf("registering %q: command has no Run function", modulePath)
		}
	case *CommandModule:
		return fmt.Errorf("registering %q: register CommandModule by value", modulePath)
	case *GroupModule:
		return fmt.Errorf("registering %q: register GroupModule by value", modulePath)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[modulePath]; exists {
		return fmt.Errorf("registering %q: module path already registered", modulePath)
	}
	r.modules[modulePath] = module
	return nil
}

// MustRegister is Register for static registration tables. It panics
// on error.
func (r *Registry) MustRegister(modulePath string, module Module) {
	if err := r.Register(modulePath, module); err != nil {
		panic(err)
	}
}

// Lookup returns the module registered under modulePath.
func (r *Registry) Lookup(modulePath string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	module, ok := r.modules[modulePath]
	return module, ok
}

// Has reports whether modulePath is registered.
func (r *Registry) Has(modulePath string) bool {
	_, ok := r.Lookup(modulePath)
	return ok
}

// children returns the sorted segment names registered exactly one
// level below modulePath.
func (r *Registry) children(modulePath string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefix := modulePath + "."
	var names []string
	for key := range r.modules {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || strings.Contains(rest, ".") {
			continue
		}
		names = append(names, rest)
	}
	slices.Sort(names)
	return names
}

// moduleTracks returns the release tracks module declared, or nil.
func moduleTracks(module Module) []ReleaseTrack {
	switch typed := module.(type) {
	case GroupModule:
		return typed.ReleaseTracks
	case CommandModule:
		return typed.ReleaseTracks
	default:
		return nil
	}
}
