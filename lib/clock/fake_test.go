// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func TestFakeNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Errorf("Now() = %v, want %v", got, epoch)
	}
}

func TestFakeAdvance(t *testing.T) {
	clock := Fake(epoch)
	clock.Advance(90 * time.Second)
	if got, want := clock.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}

	clock.Advance(-time.Hour)
	if got, want := clock.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("negative Advance moved the clock to %v", got)
	}
}

func TestSince(t *testing.T) {
	clock := Fake(epoch)
	start := clock.Now()
	clock.Advance(250 * time.Millisecond)
	if got := Since(clock, start); got != 250*time.Millisecond {
		t.Errorf("Since = %v, want 250ms", got)
	}
}

func TestRealNow(t *testing.T) {
	before := time.Now()
	got := Real().Now()
	if got.Before(before) {
		t.Errorf("Real().Now() = %v is before %v", got, before)
	}
}
