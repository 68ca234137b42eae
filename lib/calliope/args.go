// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Args is the immutable set of resolved argument values visible at a
// node: its own declared arguments plus everything resolved by its
// ancestors. The zero value is empty.
type Args struct {
	values map[string]any
}

// NewArgs returns an Args holding a copy of values.
func NewArgs(values map[string]any) Args {
	return Args{values: maps.Clone(values)}
}

// Get returns the value stored under dest. A dest that was declared
// with a nil default is present with a nil value.
func (a Args) Get(dest string) (any, bool) {
	value, ok := a.values[dest]
	return value, ok
}

// Has reports whether dest is present.
func (a Args) Has(dest string) bool {
	_, ok := a.values[dest]
	return ok
}

// String returns the string stored under dest, or "".
func (a Args) String(dest string) string {
	value, _ := a.values[dest].(string)
	return value
}

// Bool returns the bool stored under dest, or false.
func (a Args) Bool(dest string) bool {
	value, _ := a.values[dest].(bool)
	return value
}

// Int returns the int stored under dest, or 0.
func (a Args) Int(dest string) int {
	value, _ := a.values[dest].(int)
	return value
}

// Float returns the float64 stored under dest, or 0.
func (a Args) Float(dest string) float64 {
	value, _ := a.values[dest].(float64)
	return value
}

// Duration returns the duration stored under dest, or 0.
func (a Args) Duration(dest string) time.Duration {
	value, _ := a.values[dest].(time.Duration)
	return value
}

// Strings returns the string slice stored under dest, or nil.
func (a Args) Strings(dest string) []string {
	value, _ := a.values[dest].([]string)
	return slices.Clone(value)
}

// StringMap returns a copy of the string map stored under dest, or nil.
func (a Args) StringMap(dest string) map[string]string {
	value, _ := a.values[dest].(map[string]string)
	return maps.Clone(value)
}

// Size returns the byte count stored under a binary size dest, or 0.
func (a Args) Size(dest string) int64 {
	value, _ := a.values[dest].(int64)
	return value
}

// Keys returns the dests in sorted order.
func (a Args) Keys() []string {
	return slices.Sorted(maps.Keys(a.values))
}

// Len returns the number of dests.
func (a Args) Len() int { return len(a.values) }

// Map returns a copy of the values.
func (a Args) Map() map[string]any {
	if a.values == nil {
		return map[string]any{}
	}
	return maps.Clone(a.values)
}

// Equal reports whether both sets hold the same keys with equal
// scalar values. Slice and map values compare element-wise.
func (a Args) Equal(other Args) bool {
	if len(a.values) != len(other.values) {
		return false
	}
	for key, value := range a.values {
		theirs, ok := other.values[key]
		if !ok || !valuesEqual(value, theirs) {
			return false
		}
	}
	return true
}

func valuesEqual(left, right any) bool {
	leftMap, leftIsMap := left.(map[string]string)
	rightMap, rightIsMap := right.(map[string]string)
	if leftIsMap || rightIsMap {
		return leftIsMap && rightIsMap && maps.Equal(leftMap, rightMap)
	}
	leftSlice, leftIsSlice := left.([]string)
	rightSlice, rightIsSlice := right.([]string)
	if leftIsSlice || rightIsSlice {
		return leftIsSlice && rightIsSlice && slices.Equal(leftSlice, rightSlice)
	}
	return left == right
}

// formatKwargs renders values as "key='value', other=3" in key order.
func formatKwargs(values map[string]any) string {
	keys := slices.Sorted(maps.Keys(values))
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = key + "=" + formatValue(values[key])
	}
	return strings.Join(parts, ", ")
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "None"
	case string:
		return "'" + typed + "'"
	case bool:
		if typed {
			return "True"
		}
		return "False"
	case []string:
		quoted := make([]string, len(typed))
		for i, item := range typed {
			quoted[i] = "'" + item + "'"
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	case map[string]string:
		keys := slices.Sorted(maps.Keys(typed))
		pairs := make([]string, len(keys))
		for i, key := range keys {
			pairs[i] = "'" + key + "': '" + typed[key] + "'"
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	default:
		return fmt.Sprint(typed)
	}
}
