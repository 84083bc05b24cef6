// SPDX-License-Identifier: MIT
package hal

import (
	"sync"
	"time"
)

// ManualClock only moves when told to. Its Delay advances it instead of
// sleeping, so a whole render loop can run without wall time passing.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *ManualClock) DelayMicroseconds(n uint32) { c.Advance(time.Duration(n) * time.Microsecond) }
func (c *ManualClock) DelayMilliseconds(n uint32) { c.Advance(time.Duration(n) * time.Millisecond) }
