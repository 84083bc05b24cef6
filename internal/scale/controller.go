// SPDX-License-Identifier: MIT

// Package scale implements the volume button: a debounced press cycles the
// display gain through a fixed number of divisions and shows the new
// percentage on the LCD.
//
// The edge handler only records a debounce deadline. The main loop calls
// Poll, which re-checks the pin once the deadline has passed, so neither the
// interrupt context nor the render loop ever sleeps for the debounce.
package scale

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"spectrum/internal/config"
	"spectrum/internal/hal"
	"spectrum/internal/log"
)

var ErrDivisions = errors.New("scale divisions must be at least 1")

// State is a consistent view of the scale for one frame.
type State struct {
	Index      int `json:"index"`
	Percent    int `json:"percent"`
	Multiplier int `json:"multiplier"`
}

// Controller owns the scale index. Edge may be called from any goroutine;
// Poll, Holding and the accessors belong to the main loop.
type Controller struct {
	divs    int32
	settle  time.Duration
	hold    time.Duration
	button  hal.Button
	display hal.Display

	index     atomic.Int32
	deadline  atomic.Int64 // UnixNano of the pending re-check, 0 when idle.
	holdUntil atomic.Int64 // UnixNano until which edges are ignored.
	presses   atomic.Uint64
	glitches  atomic.Uint64
}

type Option func(*Controller)

// WithDelays overrides the settle and hold delays.
func WithDelays(settle, hold time.Duration) Option {
	return func(c *Controller) {
		c.settle = settle
		c.hold = hold
	}
}

// New returns a controller with divs divisions starting at initial (taken
// modulo divs). display may be nil when no readout is wanted.
func New(divs, initial int, button hal.Button, display hal.Display, opts ...Option) (*Controller, error) {
	if divs < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrDivisions, divs)
	}
	if button == nil {
		return nil, errors.New("scale controller needs a button")
	}

	c := &Controller{
		divs:    int32(divs),
		settle:  config.SettleDelay,
		hold:    config.HoldDelay,
		button:  button,
		display: display,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.index.Store(int32(((initial % divs) + divs) % divs))
	return c, nil
}

// Attach registers Edge as the button's falling-edge handler.
func (c *Controller) Attach() {
	c.button.SetEdgeHandler(c.Edge)
}

// Detach removes the edge handler.
func (c *Controller) Detach() {
	c.button.SetEdgeHandler(nil)
}

// Edge records a falling edge seen at at. Edges during the hold window or
// while a re-check is already pending are dropped.
func (c *Controller) Edge(at time.Time) {
	ns := at.UnixNano()
	if ns < c.holdUntil.Load() {
		return
	}
	c.deadline.CompareAndSwap(0, ns+int64(c.settle))
}

// Poll resolves a pending edge whose settle delay has elapsed by now. It
// reports whether a press was confirmed.
func (c *Controller) Poll(now time.Time) bool {
	d := c.deadline.Load()
	if d == 0 || now.UnixNano() < d {
		return false
	}

	if !c.button.Pressed() {
		c.deadline.CompareAndSwap(d, 0)
		c.glitches.Add(1)
		log.Debugf("Scale: discarded button glitch")
		return false
	}

	idx := (c.index.Load() + 1) % c.divs
	c.index.Store(idx)
	// Open the hold window before clearing the deadline; Edge checks it first.
	c.holdUntil.Store(now.UnixNano() + int64(c.hold))
	c.deadline.CompareAndSwap(d, 0)
	c.presses.Add(1)

	pct := c.percent(idx)
	if c.display != nil {
		c.display.GotoPosition(config.ReadoutAddress)
		c.display.WriteString(Readout(pct))
	}
	log.Debugf("Scale: index %d (%d%%)", idx, pct)
	return true
}

// Pending reports whether an edge is waiting for its re-check.
func (c *Controller) Pending() bool {
	return c.deadline.Load() != 0
}

// Holding reports whether the readout hold window is still open at now.
func (c *Controller) Holding(now time.Time) bool {
	return now.UnixNano() < c.holdUntil.Load()
}

func (c *Controller) Divisions() int { return int(c.divs) }
func (c *Controller) Index() int     { return int(c.index.Load()) }

// Multiplier is the gain applied to binned magnitudes before rendering.
// Index 0 blanks the bars.
func (c *Controller) Multiplier() int { return c.Index() }

func (c *Controller) Percent() int { return c.percent(c.index.Load()) }

func (c *Controller) percent(idx int32) int {
	return int(idx) * (100 / int(c.divs))
}

// State snapshots index, percent and multiplier from a single load.
func (c *Controller) State() State {
	idx := c.index.Load()
	return State{Index: int(idx), Percent: c.percent(idx), Multiplier: int(idx)}
}

// Presses and Glitches count confirmed and rejected edges.
func (c *Controller) Presses() uint64  { return c.presses.Load() }
func (c *Controller) Glitches() uint64 { return c.glitches.Load() }

// Readout is the LCD text for a percentage.
func Readout(percent int) string {
	return fmt.Sprintf("Volume: %d%%", percent)
}
