// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNow(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	fake.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if got := fake.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	t.Parallel()

	fake := NewFake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	channel := fake.After(time.Minute)

	select {
	case <-channel:
		t.Fatal("After fired before time advanced")
	default:
	}

	fake.Advance(time.Minute)

	select {
	case <-channel:
	default:
		t.Fatal("After did not fire after advancing past the deadline")
	}
}

func TestFakeAfterZeroDuration(t *testing.T) {
	t.Parallel()

	fake := NewFake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeSetNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	fake.Set(start.Add(-time.Hour))
	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("Now() after backwards Set = %v, want %v", got, start)
	}
}
