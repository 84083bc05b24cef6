// SPDX-License-Identifier: MIT
package hal

import (
	"sync"
	"time"
)

// VirtualButton is a button driven from software, such as a key press in the
// terminal UI or a test. The pin reads as pressed until the hold time of the
// last Tap elapses on its clock.
type VirtualButton struct {
	mu        sync.Mutex
	clock     Clock
	releaseAt time.Time
	handler   func(time.Time)
}

func NewVirtualButton(clock Clock) *VirtualButton {
	if clock == nil {
		clock = SystemClock{}
	}
	return &VirtualButton{clock: clock}
}

func (b *VirtualButton) SetEdgeHandler(fn func(at time.Time)) {
	b.mu.Lock()
	b.handler = fn
	b.mu.Unlock()
}

func (b *VirtualButton) Pressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock.Now().Before(b.releaseAt)
}

// Tap pulls the pin low for hold and delivers the falling edge.
func (b *VirtualButton) Tap(hold time.Duration) {
	b.mu.Lock()
	now := b.clock.Now()
	b.releaseAt = now.Add(hold)
	fn := b.handler
	b.mu.Unlock()

	if fn != nil {
		fn(now)
	}
}

// Glitch delivers a falling edge without the pin staying low.
func (b *VirtualButton) Glitch() {
	b.mu.Lock()
	now := b.clock.Now()
	b.releaseAt = time.Time{}
	fn := b.handler
	b.mu.Unlock()

	if fn != nil {
		fn(now)
	}
}
