// SPDX-License-Identifier: MIT

//go:build tinygo

package hal

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/hd44780i2c"
)

// MachineADC latches a conversion of an analog pin. The reading is taken in
// StartConversion so ReadSample returns the previous conversion, as on a
// free-running converter.
type MachineADC struct {
	adc   machine.ADC
	value float64
}

func NewMachineADC(pin machine.Pin) *MachineADC {
	machine.InitADC()
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	a := &MachineADC{adc: adc}
	a.StartConversion()
	return a
}

func (a *MachineADC) ReadSample() float64 { return a.value }

func (a *MachineADC) StartConversion() {
	// Get is scaled to 16 bits regardless of the converter's resolution.
	a.value = float64(a.adc.Get()) / 65536
}

// LEDPin is a Heartbeat on a push-pull output, usually machine.LED.
type LEDPin struct {
	pin  machine.Pin
	high bool
}

func NewLEDPin(pin machine.Pin) *LEDPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return &LEDPin{pin: pin}
}

func (p *LEDPin) Toggle() {
	p.high = !p.high
	p.pin.Set(p.high)
}

// I2CDisplay translates the raw instruction stream onto an hd44780i2c
// backpack. CGRAM writes are collected per glyph and uploaded together.
type I2CDisplay struct {
	dev       hd44780i2c.Device
	cgram     bool
	glyph     byte
	glyphRow  int
	glyphData [8]byte
}

func NewI2CDisplay(bus *machine.I2C, addr uint8) *I2CDisplay {
	dev := hd44780i2c.New(bus, addr)
	dev.Configure(hd44780i2c.Config{Width: lcdColumns, Height: lcdRows})
	return &I2CDisplay{dev: dev}
}

func (d *I2CDisplay) WriteCommand(code byte) {
	switch Instruction(code) {
	case CmdSetDDRAM:
		d.cgram = false
		addr := code &^ CmdSetDDRAM
		d.dev.SetCursor(addr%lcdLine2, addr/lcdLine2)
	case CmdSetCGRAM:
		d.cgram = true
		addr := code &^ CmdSetCGRAM
		d.glyph = addr / 8
		d.glyphRow = int(addr % 8)
	case CmdDisplayControl:
		d.dev.DisplayOn(code&DisplayOn != 0)
	case CmdHome:
		d.cgram = false
		d.dev.Home()
	case CmdClear:
		d.cgram = false
		d.dev.ClearDisplay()
	default:
		// Function set, shift and entry mode are configured once by the driver.
	}
}

func (d *I2CDisplay) WriteChar(c byte) {
	if !d.cgram {
		d.dev.Print([]byte{c})
		return
	}
	d.glyphData[d.glyphRow] = c & 0x1F
	d.glyphRow++
	if d.glyphRow == len(d.glyphData) {
		d.dev.CreateCharacter(d.glyph&0x07, d.glyphData[:])
		d.glyph++
		d.glyphRow = 0
	}
}

func (d *I2CDisplay) GotoPosition(addr byte) {
	d.WriteCommand(CmdSetDDRAM | addr&0x7F)
}

func (d *I2CDisplay) WriteString(s string) {
	d.dev.Print([]byte(s))
}

// PinButton is an active-low button with the internal pull-up enabled.
type PinButton struct {
	pin machine.Pin
}

func NewPinButton(pin machine.Pin) *PinButton {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return &PinButton{pin: pin}
}

func (b *PinButton) Pressed() bool { return !b.pin.Get() }

func (b *PinButton) SetEdgeHandler(fn func(at time.Time)) {
	if fn == nil {
		b.pin.SetInterrupt(0, nil)
		return
	}
	b.pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		fn(time.Now())
	})
}

// BusyDelay spins on the monotonic clock.
type BusyDelay struct{}

func (BusyDelay) DelayMicroseconds(n uint32) {
	end := time.Now().Add(time.Duration(n) * time.Microsecond)
	for time.Now().Before(end) {
	}
}

func (BusyDelay) DelayMilliseconds(n uint32) { time.Sleep(time.Duration(n) * time.Millisecond) }
