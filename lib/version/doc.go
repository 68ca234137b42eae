// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the skyctl binary.
//
// Four variables are injected at link time with -ldflags -X:
//
//   - [GitCommit] is the short git SHA of the build
//   - [GitDirty] is "true" when the tree had uncommitted changes
//   - [BuildTime] is the UTC timestamp of the build
//   - [Version] is the release version
//
//	go build -ldflags "-X github.com/bureau-foundation/calliope/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit was not injected, the VCS stamp the Go toolchain
// embeds in module builds is used instead, so `go install` binaries
// still report their revision.
package version
