// SPDX-License-Identifier: MIT

//go:build tinygo && rp2040

package main

import (
	"context"
	"machine"

	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/hal"
	applog "spectrum/internal/log"
)

// Raspberry Pi Pico wiring.
const (
	lcdAddress = 0x27 // PCF8574 backpack.
	analogPin  = machine.ADC0
	buttonPin  = machine.GP15
)

// main runs the analyzer loop on the microcontroller. There is no CLI or
// transport; the board is the whole system.
func main() {
	bus := machine.I2C0
	if err := bus.Configure(machine.I2CConfig{
		SDA:       machine.GP4,
		SCL:       machine.GP5,
		Frequency: 400 * machine.KHz,
	}); err != nil {
		applog.Fatalf("I2C: %v", err)
	}

	cfg := config.Default()
	cfg.Display.UI = config.UIHeadless
	cfg.Display.FrameInterval = 0

	engine, err := audio.NewEngine(cfg, hal.Board{
		ADC:       hal.NewMachineADC(analogPin),
		Display:   hal.NewI2CDisplay(bus, lcdAddress),
		Button:    hal.NewPinButton(buttonPin),
		Clock:     hal.SystemClock{},
		Delay:     hal.BusyDelay{},
		Heartbeat: hal.NewLEDPin(machine.LED),
	})
	if err != nil {
		applog.Fatalf("Engine: %v", err)
	}

	// Never returns.
	engine.Run(context.Background())
}
