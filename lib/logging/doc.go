// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the structured loggers used by command-line
// invocations.
//
// Console output goes to stderr through log/slog: a text handler when
// stderr is a terminal, a JSON handler when it is piped or redirected
// (CI, scripts, integration tests). The console level follows the
// invocation's verbosity ([VerbosityError] through [VerbosityDebug]).
//
// A [Sink] optionally also writes every record at debug level to a
// per-process JSON-lines file under a logs directory, named by the
// start time ("2026.01.15/12.00.00.000000.log"). Tool errors are
// reported there in full while the console gets a one-line summary.
package logging
