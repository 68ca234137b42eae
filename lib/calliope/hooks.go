// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"fmt"
	"regexp"
)

// HookFunc runs before or after a command. commandPath is the
// dot-joined path the command was invoked by.
type HookFunc func(commandPath string) error

type runHook struct {
	fn      HookFunc
	include *regexp.Regexp
	exclude *regexp.Regexp
}

func newRunHook(fn HookFunc, include, exclude string) (*runHook, error) {
	if fn == nil {
		return nil, fmt.Errorf("run hook function is nil")
	}
	if include == "" {
		include = ".*"
	}
	hook := &runHook{fn: fn}
	var err error
	if hook.include, err = anchored(include); err != nil {
		return nil, fmt.Errorf("compiling include pattern %q: %w", include, err)
	}
	if exclude != "" {
		if hook.exclude, err = anchored(exclude); err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", exclude, err)
		}
	}
	return hook, nil
}

// anchored compiles pattern so that it only matches at the start of
// the input, like a prefix match.
func anchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)`)
}

func (h *runHook) matches(commandPath string) bool {
	if !h.include.MatchString(commandPath) {
		return false
	}
	return h.exclude == nil || !h.exclude.MatchString(commandPath)
}

// runHooks calls every matching hook in registration order and stops
// at the first error.
func runHooks(hooks []*runHook, commandPath string) error {
	for _, hook := range hooks {
		if !hook.matches(commandPath) {
			continue
		}
		if err := hook.fn(commandPath); err != nil {
			return err
		}
	}
	return nil
}
