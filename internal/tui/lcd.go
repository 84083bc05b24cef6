// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"spectrum/internal/config"
	"spectrum/internal/hal"
	"spectrum/internal/transport"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// TapHold is how long a key press keeps the virtual pin asserted. It must
// outlast the settle delay or the controller reads the press as a glitch.
const TapHold = config.SettleDelay + 100*time.Millisecond

// DefaultRefresh is the terminal redraw period.
const DefaultRefresh = 50 * time.Millisecond

// Screen is anything that can report what the LCD currently shows.
type Screen interface {
	Snapshot() hal.Screen
}

// Button is the virtual pin driven by the keyboard.
type Button interface {
	Tap(hold time.Duration)
	Glitch()
}

type lcdKeyMap struct {
	Press  key.Binding
	Glitch key.Binding
	Quit   key.Binding
}

func (k lcdKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Press, k.Glitch, k.Quit}
}

func (k lcdKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var lcdKeys = lcdKeyMap{
	Press: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "volume"),
	),
	Glitch: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "bounce"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type tickMsg time.Time

// LCDModel mirrors the virtual LCD in the terminal and maps keys onto the
// volume button.
type LCDModel struct {
	screen  Screen
	frames  transport.FrameSource
	button  Button
	peak    func() float64
	beats   func() uint64
	refresh time.Duration

	keys lcdKeyMap
	help help.Model

	snapshot hal.Screen
	frame    transport.Frame
	hasFrame bool
	toggles  uint64
	presses  int
}

// LCDOption customizes an LCDModel.
type LCDOption func(*LCDModel)

// WithPeak shows the live input peak in the status line.
func WithPeak(peak func() float64) LCDOption {
	return func(m *LCDModel) { m.peak = peak }
}

// WithHeartbeat shows the loop heartbeat's toggle count in the status line.
func WithHeartbeat(toggles func() uint64) LCDOption {
	return func(m *LCDModel) { m.beats = toggles }
}

// WithRefresh overrides DefaultRefresh.
func WithRefresh(d time.Duration) LCDOption {
	return func(m *LCDModel) {
		if d > 0 {
			m.refresh = d
		}
	}
}

// NewLCDModel returns a model drawing screen and the latest frame of frames.
// button may be nil when the pin is a real GPIO line.
func NewLCDModel(screen Screen, frames transport.FrameSource, button Button, opts ...LCDOption) LCDModel {
	m := LCDModel{
		screen:  screen,
		frames:  frames,
		button:  button,
		refresh: DefaultRefresh,
		keys:    lcdKeys,
		help:    help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.snapshot = screen.Snapshot()
	return m
}

func (m LCDModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the redraw ticker.
func (m LCDModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles key presses and refresh ticks.
func (m LCDModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snapshot = m.screen.Snapshot()
		if m.frames != nil {
			m.frame, m.hasFrame = m.frames.LatestFrame()
		}
		if m.beats != nil {
			m.toggles = m.beats()
		}
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Press):
			if m.button != nil {
				m.button.Tap(TapHold)
				m.presses++
			}
		case key.Matches(msg, m.keys.Glitch):
			if m.button != nil {
				m.button.Glitch()
			}
		}
	}
	return m, nil
}

// View renders the LCD panel, a status line and the key help.
func (m LCDModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Spectrum"))
	sb.WriteString("\n\n")

	panel := m.snapshot.Row(0) + "\n" + m.snapshot.Row(1)
	if !m.snapshot.On {
		panel = strings.Repeat(" ", config.DisplayColumns) + "\n" + strings.Repeat(" ", config.DisplayColumns)
	}
	sb.WriteString(lcdStyle.Render(panel))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.status()))
	sb.WriteString("\n\n")
	if m.button != nil {
		sb.WriteString(m.help.View(m.keys))
	} else {
		sb.WriteString(infoStyle.Render("q: Quit"))
	}
	return sb.String()
}

func (m LCDModel) status() string {
	if !m.hasFrame {
		return "waiting for first frame"
	}
	parts := []string{
		fmt.Sprintf("volume %d%%", m.frame.Percent),
		fmt.Sprintf("frame #%d", m.frame.Sequence),
	}
	if m.frame.Holding {
		parts = append(parts, "readout")
	}
	if m.beats != nil {
		parts = append(parts, fmt.Sprintf("heartbeat %d", m.toggles))
	}
	if m.peak != nil {
		parts = append(parts, fmt.Sprintf("peak %.2f", m.peak()))
	}
	return strings.Join(parts, " │ ")
}

// Presses counts the taps sent to the button.
func (m LCDModel) Presses() int { return m.presses }

// RunLCD runs the LCD model until the user quits.
func RunLCD(m LCDModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
