// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for calliope packages.
//
// [ConfigFile] and [WriteFile] lay out files under t.TempDir() for
// tests that exercise persisted configuration, manifests, and caches.
//
// [RequireErrorAs] asserts that an error matches a typed error with
// errors.As and returns the matched value, so tests can check fields
// of MissingArgumentError and friends in one line.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) for tests that run invocations
// concurrently.
//
// [UniqueName] generates sequence-numbered names that keep concurrent
// invocations distinguishable.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no calliope-internal dependencies.
package testutil
