// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake is a Clock with manually controlled time. The current time
// only moves when Advance or Set is called. Safe for concurrent use.
type Fake struct {
	mutex   sync.Mutex
	current time.Time
	waiters []*fakeWaiter
}

// fakeWaiter is a pending After call: a channel to deliver on and
// the deadline at which it fires.
type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

// NewFake returns a Fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

// Now returns the fake current time.
func (fake *Fake) Now() time.Time {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.current
}

// After returns a channel that receives the fake current time once
// Advance or Set moves time past the deadline. If d <= 0 the channel
// receives immediately.
func (fake *Fake) After(d time.Duration) <-chan time.Time {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- fake.current
		return channel
	}
	fake.waiters = append(fake.waiters, &fakeWaiter{
		deadline: fake.current.Add(d),
		channel:  channel,
	})
	return channel
}

// Sleep on a fake clock returns immediately. Tests that need to
// observe elapsed time use Advance from the test goroutine instead
// of blocking the code under test.
func (fake *Fake) Sleep(time.Duration) {}

// Advance moves the fake time forward by d, firing any After
// channels whose deadline has been reached.
func (fake *Fake) Advance(d time.Duration) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.current = fake.current.Add(d)
	fake.fireDueLocked()
}

// Set jumps the fake time to the given instant. Time never moves
// backwards: an earlier instant is ignored.
func (fake *Fake) Set(instant time.Time) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if instant.After(fake.current) {
		fake.current = instant
		fake.fireDueLocked()
	}
}

// fireDueLocked delivers to all waiters whose deadline has passed.
// Caller holds the mutex.
func (fake *Fake) fireDueLocked() {
	remaining := fake.waiters[:0]
	for _, waiter := range fake.waiters {
		if !waiter.deadline.After(fake.current) {
			waiter.channel <- fake.current
			continue
		}
		remaining = append(remaining, waiter)
	}
	fake.waiters = remaining
}
