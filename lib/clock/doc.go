// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides a wall-clock abstraction for deterministic
// testing.
//
// Production code calls [Real] to get a clock backed by the standard
// time package. Tests call [Fake] with a fixed start time and move it
// with [FakeClock.Advance], so that log file names and measured
// command durations are reproducible.
package clock
