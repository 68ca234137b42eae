// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strconv"
	"sync/atomic"
)

var sequence atomic.Uint64

// UniqueName returns prefix and a process-wide sequence number joined
// by an underscore, so the result is also a valid module path segment
// or argument value in concurrent tests.
//
//	project := testutil.UniqueName("project") // "project_1", "project_2", ...
func UniqueName(prefix string) string {
	return prefix + "_" + strconv.FormatUint(sequence.Add(1), 10)
}
