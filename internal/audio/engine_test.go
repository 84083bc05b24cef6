// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"spectrum/internal/config"
	"spectrum/internal/display"
	"spectrum/internal/hal"
	"spectrum/internal/transport"
)

var testStart = time.Unix(1700000000, 0)

type testBoard struct {
	clock     *hal.ManualClock
	lcd       *hal.LCD
	button    *hal.VirtualButton
	heartbeat *hal.VirtualPin
}

func newTestEngineWith(t testing.TB, adc hal.ADC, mutate func(*config.Config)) (*Engine, *testBoard) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	tb := &testBoard{
		clock:     hal.NewManualClock(testStart),
		lcd:       hal.NewLCD(),
		heartbeat: &hal.VirtualPin{},
	}
	tb.button = hal.NewVirtualButton(tb.clock)

	engine, err := NewEngine(cfg, hal.Board{
		ADC:       adc,
		Display:   tb.lcd,
		Button:    tb.button,
		Clock:     tb.clock,
		Delay:     tb.clock,
		Heartbeat: tb.heartbeat,
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	engine.Start()
	return engine, tb
}

// recordingTransport keeps every frame it is sent.
type recordingTransport struct {
	mu     sync.Mutex
	frames []transport.Frame
	err    error
	closed bool
}

func (r *recordingTransport) Send(f transport.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return r.err
}

func (r *recordingTransport) Close() error {
	r.closed = true
	return nil
}

func TestNewEngineValidation(t *testing.T) {
	lcd := hal.NewLCD()
	button := hal.NewVirtualButton(nil)

	tests := []struct {
		name   string
		board  hal.Board
		mutate func(*config.Config)
	}{
		{"missing ADC", hal.Board{Display: lcd, Button: button}, nil},
		{"missing display", hal.Board{ADC: hal.ConstantADC(0), Button: button}, nil},
		{"missing button", hal.Board{ADC: hal.ConstantADC(0), Display: lcd}, nil},
		{"bad selection", hal.Board{ADC: hal.ConstantADC(0), Display: lcd, Button: button},
			func(c *config.Config) { c.Binner.Selection = "middle" }},
		{"bad overflow", hal.Board{ADC: hal.ConstantADC(0), Display: lcd, Button: button},
			func(c *config.Config) { c.Display.Overflow = "wrap" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			if _, err := NewEngine(cfg, tt.board); err == nil {
				t.Error("Expected error")
			}
		})
	}

	// A nil config falls back to defaults.
	if _, err := NewEngine(nil, hal.Board{ADC: hal.ConstantADC(0), Display: lcd, Button: button}); err != nil {
		t.Errorf("NewEngine(nil) error = %v", err)
	}
}

func TestEngineStart(t *testing.T) {
	engine, tb := newTestEngineWith(t, hal.ConstantADC(0), nil)

	if got := tb.clock.Now().Sub(testStart); got != config.PowerOnDelay {
		t.Errorf("Power-on delay = %v, want %v", got, config.PowerOnDelay)
	}
	snap := tb.lcd.Snapshot()
	if !snap.On {
		t.Error("Display should be switched on")
	}
	for i, glyph := range display.Glyphs {
		for row, bits := range glyph {
			if snap.CGRAM[i*8+row] != bits {
				t.Fatalf("CGRAM glyph %d row %d = %#x, want %#x", i, row, snap.CGRAM[i*8+row], bits)
			}
		}
	}

	// Starting twice does nothing.
	engine.Start()
	if got := tb.clock.Now().Sub(testStart); got != config.PowerOnDelay {
		t.Errorf("Second Start delayed again: %v", got)
	}
}

func TestEngineZeroInput(t *testing.T) {
	for _, adc := range []hal.ADC{hal.ConstantADC(0), hal.ConstantADC(0.5)} {
		for initial := 0; initial < config.Divisions; initial++ {
			engine, tb := newTestEngineWith(t, adc, func(c *config.Config) { c.Scale.Initial = initial })
			frame := engine.Step()

			for i, b := range frame.Bins {
				if b != 0 {
					t.Errorf("adc=%v scale=%d: bin %d = %d, want 0", adc, initial, i, b)
				}
			}
			snap := tb.lcd.Snapshot()
			for c := 0; c < config.DisplayColumns; c++ {
				if snap.Cell(0, c) != ' ' || snap.Cell(1, c) != 0 {
					t.Errorf("adc=%v scale=%d: column %d = %q/%d, want blank/glyph 0",
						adc, initial, c, snap.Cell(0, c), snap.Cell(1, c))
				}
			}
		}
	}
}

func TestEngineToneLightsOneColumn(t *testing.T) {
	const toneBin = 4
	for _, sel := range []string{config.SelectionUpper, config.SelectionLower} {
		t.Run(sel, func(t *testing.T) {
			adc := hal.NewToneADC(config.FFTSize, toneBin, 0.3)
			engine, tb := newTestEngineWith(t, adc, func(c *config.Config) {
				c.Binner.Selection = sel
				c.Scale.Initial = 1
			})
			frame := engine.Step()

			// 0.3 * 64 / 2 = 9.6 rounds to 10, in display bin (32-4)/2.
			lit := (config.FFTSize/2 - toneBin) / (config.FFTSize / 2 / config.DisplayBins)
			for i, b := range frame.Bins {
				want := 0
				if i == lit {
					want = 10
				}
				if b != want {
					t.Errorf("Bin %d = %d, want %d", i, b, want)
				}
			}

			col := config.DisplayColumns - 1 - lit
			snap := tb.lcd.Snapshot()
			if snap.Cell(0, col) != 2 || snap.Cell(1, col) != display.FullGlyph {
				t.Errorf("Column %d = %d/%d, want 2/%d", col, snap.Cell(0, col), snap.Cell(1, col), display.FullGlyph)
			}
		})
	}
}

func TestEngineButtonPress(t *testing.T) {
	adc := hal.NewToneADC(config.FFTSize, 4, 0.3)
	engine, tb := newTestEngineWith(t, adc, func(c *config.Config) { c.Scale.Initial = 0 })

	tb.button.Tap(time.Second)
	tb.clock.Advance(config.SettleDelay)
	frame := engine.Step()

	if frame.Scale != 1 || frame.Percent != 25 || !frame.Holding {
		t.Fatalf("Frame after press = %+v", frame)
	}
	row := tb.lcd.Snapshot().Row(0)
	if !strings.HasPrefix(row[config.ReadoutAddress:], "Volume: 25%") {
		t.Errorf("Row 0 = %q, want readout at %#x", row, config.ReadoutAddress)
	}

	// Still holding: the readout is not overdrawn.
	tb.clock.Advance(config.HoldDelay / 2)
	engine.Step()
	if row := tb.lcd.Snapshot().Row(0); !strings.Contains(row, "Volume: 25%") {
		t.Errorf("Readout overwritten during hold: %q", row)
	}

	tb.clock.Advance(config.HoldDelay / 2)
	frame = engine.Step()
	if frame.Holding {
		t.Error("Hold window should be over")
	}
	if row := tb.lcd.Snapshot().Row(0); strings.Contains(row, "Volume") {
		t.Errorf("Bars should replace the readout, row 0 = %q", row)
	}
}

func TestEngineOverflow(t *testing.T) {
	tests := []struct {
		overflow string
		skipped  uint64
	}{
		{config.OverflowSkip, 1},
		{config.OverflowClamp, 0},
	}

	for _, tt := range tests {
		t.Run(tt.overflow, func(t *testing.T) {
			adc := hal.NewToneADC(config.FFTSize, 4, 0.3)
			engine, _ := newTestEngineWith(t, adc, func(c *config.Config) {
				c.Display.Overflow = tt.overflow
				c.Scale.Initial = 3 // 10 * 3 = 30
			})
			engine.Step()
			if got := engine.Skipped(); got != tt.skipped {
				t.Errorf("Skipped() = %d, want %d", got, tt.skipped)
			}
		})
	}
}

func TestEngineLatestFrameAndTransports(t *testing.T) {
	engine, _ := newTestEngineWith(t, hal.ConstantADC(0), nil)

	if _, ok := engine.LatestFrame(); ok {
		t.Error("LatestFrame should be empty before the first step")
	}

	good := &recordingTransport{}
	failing := &recordingTransport{err: errors.New("link down")}
	engine.AddTransport(failing)
	engine.AddTransport(good)

	for i := 0; i < 3; i++ {
		engine.Step()
	}

	latest, ok := engine.LatestFrame()
	if !ok || latest.Sequence != 3 {
		t.Errorf("LatestFrame() = %+v, %v", latest, ok)
	}
	if len(good.frames) != 3 || len(failing.frames) != 3 {
		t.Errorf("Transports received %d and %d frames, want 3 each", len(good.frames), len(failing.frames))
	}
	for i, f := range good.frames {
		if f.Sequence != uint64(i+1) {
			t.Errorf("Frame %d has sequence %d", i, f.Sequence)
		}
	}
}

func TestEngineRun(t *testing.T) {
	engine, _ := newTestEngineWith(t, hal.ConstantADC(0), func(c *config.Config) {
		c.Display.FrameInterval = time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if f, ok := engine.LatestFrame(); ok && f.Sequence >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Engine produced no frames")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEngineRunUnpaced(t *testing.T) {
	engine, _ := newTestEngineWith(t, hal.ConstantADC(0), func(c *config.Config) {
		c.Display.FrameInterval = 0
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := engine.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if f, _ := engine.LatestFrame(); f.Sequence == 0 {
		t.Error("Unpaced run should have stepped")
	}
}

func TestEngineHeartbeat(t *testing.T) {
	engine, tb := newTestEngineWith(t, hal.ConstantADC(0), nil)
	if got := tb.heartbeat.Toggles(); got != 0 {
		t.Fatalf("Start toggled the heartbeat %d times", got)
	}

	for i := 1; i <= 5; i++ {
		engine.Step()
		if got := tb.heartbeat.Toggles(); got != uint64(i) {
			t.Fatalf("After %d steps heartbeat toggled %d times", i, got)
		}
		if tb.heartbeat.High() != (i%2 == 1) {
			t.Errorf("Step %d left the pin high=%v", i, tb.heartbeat.High())
		}
	}

	// The pin is optional.
	bare, err := NewEngine(config.Default(), hal.Board{
		ADC:     hal.ConstantADC(0),
		Display: hal.NewLCD(),
		Button:  hal.NewVirtualButton(tb.clock),
		Clock:   tb.clock,
		Delay:   tb.clock,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if f := bare.Step(); f.Sequence != 1 {
		t.Errorf("Step without heartbeat = %+v", f)
	}
}

// Button edges arrive on their own goroutine while Run polls the scale, as
// with a GPIO interrupt. Run with -race.
func TestEngineRunConcurrentButton(t *testing.T) {
	adc := hal.NewToneADC(config.FFTSize, 4, 0.3)
	engine, tb := newTestEngineWith(t, adc, func(c *config.Config) {
		c.Display.FrameInterval = time.Millisecond
		c.Scale.Initial = 0
	})
	frames := &recordingTransport{}
	engine.AddTransport(frames)
	ctrl := engine.Scale()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	const edges = 30
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < edges; i++ {
			if i%3 == 2 {
				tb.button.Glitch()
			} else {
				// Held well past the settle delay.
				tb.button.Tap(config.SettleDelay + config.HoldDelay + time.Second)
			}
			time.Sleep(time.Millisecond)
			tb.clock.Advance(config.SettleDelay)
			time.Sleep(2 * time.Millisecond)
			tb.clock.Advance(config.HoldDelay)
		}
	}()
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("Last edge was never resolved")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	presses, glitches := ctrl.Presses(), ctrl.Glitches()
	if presses == 0 {
		t.Error("No press was confirmed")
	}
	if presses+glitches > edges {
		t.Errorf("Resolved %d presses and %d glitches from %d edges", presses, glitches, edges)
	}
	if got, want := ctrl.Index(), int(presses%uint64(ctrl.Divisions())); got != want {
		t.Errorf("Index() = %d after %d presses, want %d", got, presses, want)
	}

	step := 100 / ctrl.Divisions()
	for _, f := range frames.frames {
		if f.Scale < 0 || f.Scale >= ctrl.Divisions() {
			t.Fatalf("Frame %d has scale %d outside [0, %d)", f.Sequence, f.Scale, ctrl.Divisions())
		}
		if f.Percent != f.Scale*step || f.Multiplier != f.Scale {
			t.Fatalf("Frame %d is inconsistent: %+v", f.Sequence, f)
		}
	}
}

func TestEngineStepHotPath(t *testing.T) {
	adc := hal.NewToneADC(config.FFTSize, 6, 0.2)
	engine, _ := newTestEngineWith(t, adc, nil)
	engine.Step()

	allocs := testing.AllocsPerRun(100, func() {
		engine.Step()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Step, got %.1f", allocs)
	}
}

func TestSamplerFill(t *testing.T) {
	adc := &sequenceADC{values: []float64{0.1, 0.2, 0.3}}
	s := NewSampler(adc)
	buf := make([]complex128, 5)
	for i := range buf {
		buf[i] = complex(9, 9)
	}
	s.Fill(buf)

	want := []float64{0.1, 0.2, 0.3, 0.3, 0.3}
	for i, w := range want {
		if buf[i] != complex(w, 0) {
			t.Errorf("buf[%d] = %v, want %v", i, buf[i], complex(w, 0))
		}
	}
	if adc.conversions != len(buf) {
		t.Errorf("StartConversion called %d times, want %d", adc.conversions, len(buf))
	}
}

// sequenceADC returns values in order, then repeats the last one.
type sequenceADC struct {
	values      []float64
	pos         int
	conversions int
}

func (a *sequenceADC) ReadSample() float64 { return a.values[a.pos] }

func (a *sequenceADC) StartConversion() {
	a.conversions++
	if a.pos < len(a.values)-1 {
		a.pos++
	}
}

func BenchmarkEngineStep(b *testing.B) {
	adc := hal.NewToneADC(config.FFTSize, 6, 0.2)
	engine, _ := newTestEngineWith(b, adc, nil)
	b.ResetTimer()
	for bn := 0; bn < b.N; bn++ {
		engine.Step()
	}
}
