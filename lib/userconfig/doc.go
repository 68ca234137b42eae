// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package userconfig persists the per-user configuration object that
// commands read and modify.
//
// The file is a single JSON object. [Store.Load] is tolerant: a
// missing or empty file yields an empty object, and comments and
// trailing commas are accepted (via tidwall/jsonc), so hand-edited
// files keep working. [Store.Save] writes canonical JSON with two-space
// indentation and a trailing newline, creating parent directories as
// needed, through a temporary file that is fsynced and renamed into
// place so readers never see a partial write.
package userconfig
