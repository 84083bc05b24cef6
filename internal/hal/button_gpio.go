// SPDX-License-Identifier: MIT

//go:build !tinygo

package hal

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePollTimeout bounds how long the watcher blocks before checking for Close.
const edgePollTimeout = 100 * time.Millisecond

// GPIOButton reads an active-low push button on a host GPIO line (for
// example "GPIO17" on a Raspberry Pi) with the internal pull-up enabled.
type GPIOButton struct {
	pin gpio.PinIO

	mu      sync.Mutex
	handler func(time.Time)

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// OpenGPIOButton initializes the host drivers, claims the named pin and
// starts watching it for falling edges.
func OpenGPIOButton(name string) (*GPIOButton, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPIO host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("GPIO pin %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", name, err)
	}

	b := &GPIOButton{pin: pin, done: make(chan struct{})}
	b.wg.Add(1)
	go b.watch()
	return b, nil
}

func (b *GPIOButton) watch() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		default:
		}
		if !b.pin.WaitForEdge(edgePollTimeout) {
			continue
		}
		at := time.Now()
		b.mu.Lock()
		fn := b.handler
		b.mu.Unlock()
		if fn != nil {
			fn(at)
		}
	}
}

func (b *GPIOButton) SetEdgeHandler(fn func(at time.Time)) {
	b.mu.Lock()
	b.handler = fn
	b.mu.Unlock()
}

func (b *GPIOButton) Pressed() bool {
	return b.pin.Read() == gpio.Low
}

// Close stops the watcher and releases the pin.
func (b *GPIOButton) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		b.wg.Wait()
		err = b.pin.Halt()
	})
	return err
}
