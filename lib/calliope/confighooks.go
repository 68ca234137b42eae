// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import "slices"

// Config is the persisted user configuration: a JSON object loaded
// before a command runs and saved after it succeeds. Handlers may
// mutate it in place.
type Config map[string]any

// ToolContext is the per-invocation bag of values filters and handlers
// share. It starts out as whatever the loader's context hook builds
// from the config.
type ToolContext map[string]any

// ContextFilter is a group's hook for adjusting the tool context before
// any command below the group runs. Filters run root to leaf; an error
// aborts the invocation.
type ContextFilter func(toolContext ToolContext, config Config, args Args) error

// ConfigHooks is an immutable chain of context filters together with
// the hooks that load and save the persisted configuration. Each group
// extends its parent's chain with [ConfigHooks.WithFilter]; the parent
// is never modified, so siblings never observe each other's filters.
type ConfigHooks struct {
	parent      *ConfigHooks
	filter      ContextFilter
	loadContext func(Config) (ToolContext, error)
	loadConfig  func() (Config, error)
	saveConfig  func(Config) error
}

// NewConfigHooks returns the root of a hook chain. Nil hooks fall back
// to an empty tool context, an empty config, and a no-op save.
func NewConfigHooks(loadContext func(Config) (ToolContext, error), loadConfig func() (Config, error), saveConfig func(Config) error) *ConfigHooks {
	if loadContext == nil {
		loadContext = func(Config) (ToolContext, error) { return ToolContext{}, nil }
	}
	if loadConfig == nil {
		loadConfig = func() (Config, error) { return Config{}, nil }
	}
	if saveConfig == nil {
		saveConfig = func(Config) error { return nil }
	}
	return &ConfigHooks{loadContext: loadContext, loadConfig: loadConfig, saveConfig: saveConfig}
}

// WithFilter returns a new chain that runs filter after every filter of
// the receiver. A nil filter returns the receiver unchanged.
func (h *ConfigHooks) WithFilter(filter ContextFilter) *ConfigHooks {
	if filter == nil {
		return h
	}
	return &ConfigHooks{
		parent:      h,
		filter:      filter,
		loadContext: h.loadContext,
		loadConfig:  h.loadConfig,
		saveConfig:  h.saveConfig,
	}
}

// Filters returns the filter pipeline in root-to-leaf order.
func (h *ConfigHooks) Filters() []ContextFilter {
	var filters []ContextFilter
	for current := h; current != nil; current = current.parent {
		if current.filter != nil {
			filters = append(filters, current.filter)
		}
	}
	slices.Reverse(filters)
	return filters
}

// LoadConfig reads the persisted configuration.
func (h *ConfigHooks) LoadConfig() (Config, error) {
	config, err := h.loadConfig()
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = Config{}
	}
	return config, nil
}

// LoadContext builds a fresh tool context from config.
func (h *ConfigHooks) LoadContext(config Config) (ToolContext, error) {
	toolContext, err := h.loadContext(config)
	if err != nil {
		return nil, err
	}
	if toolContext == nil {
		toolContext = ToolContext{}
	}
	return toolContext, nil
}

// SaveConfig persists config.
func (h *ConfigHooks) SaveConfig(config Config) error {
	return h.saveConfig(config)
}
