// Package tui runs the interactive before/after compare view. Mouse input
// drives a slider.Slider through a slider.Document the same way pointer
// events drive the compare widget in a browser.
package tui

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/manash/roomdesign/internal/slider"
)

const (
	margin       = 2
	defaultWidth = 80
	keyStep      = 5.0
	// hitSlop is how many cells either side of the handle still grab it.
	hitSlop = 1
)

type Compare struct {
	doc      *slider.Document
	slider   *slider.Slider
	width    int
	accepted bool
	quitting bool
}

func NewCompare(position float64) *Compare {
	doc := slider.NewDocument()
	s := slider.New(doc, barRect(defaultWidth))
	s.SetPosition(position)
	return &Compare{doc: doc, slider: s, width: defaultWidth}
}

func barRect(width int) slider.Rect {
	w := width - 2*margin
	if w < 1 {
		w = 1
	}
	return slider.Rect{Left: margin, Width: float64(w)}
}

func (c *Compare) Position() float64 { return c.slider.Position() }

func (c *Compare) Dragging() bool { return c.slider.Dragging() }

// Accepted reports whether the user confirmed the position with enter.
func (c *Compare) Accepted() bool { return c.accepted }

func (c *Compare) Init() tea.Cmd { return nil }

func (c *Compare) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.slider.Resize(barRect(msg.Width))

	case tea.MouseMsg:
		c.handleMouse(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			c.slider.SetPosition(c.slider.Position() - keyStep)
		case "right", "l":
			c.slider.SetPosition(c.slider.Position() + keyStep)
		case "home":
			c.slider.SetPosition(0)
		case "end":
			c.slider.SetPosition(100)
		case "enter":
			c.accepted = true
			return c, c.quit()
		case "q", "esc", "ctrl+c":
			return c, c.quit()
		}
	}
	return c, nil
}

func (c *Compare) handleMouse(msg tea.MouseMsg) {
	x := float64(msg.X)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && math.Abs(x-c.slider.HandleX()) <= hitSlop {
			c.slider.PointerDown()
		}
	case tea.MouseActionMotion:
		c.doc.Dispatch(slider.Event{Kind: slider.PointerMove, Source: slider.Mouse, X: x})
	case tea.MouseActionRelease:
		c.doc.Dispatch(slider.Event{Kind: slider.PointerUp, Source: slider.Mouse, X: x})
	}
}

func (c *Compare) quit() tea.Cmd {
	c.quitting = true
	c.slider.Close()
	return tea.Quit
}

func (c *Compare) View() string {
	if c.quitting {
		return ""
	}

	bounds := c.slider.Bounds()
	cells := int(bounds.Width)
	handle := int(math.Round(c.slider.HandleX() - bounds.Left))
	if handle >= cells {
		handle = cells - 1
	}

	var bar strings.Builder
	bar.WriteString(strings.Repeat(" ", margin))
	for i := 0; i < cells; i++ {
		switch {
		case i == handle:
			bar.WriteRune('┃')
		case i < handle:
			bar.WriteRune('░')
		default:
			bar.WriteRune('█')
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sbefore %5.1f%% ◀ ▶ %5.1f%% after\n", strings.Repeat(" ", margin), c.slider.Position(), c.slider.ClipInset())
	b.WriteString(bar.String())
	b.WriteString("\n")
	state := "drag the handle"
	if c.slider.Dragging() {
		state = "dragging"
	}
	fmt.Fprintf(&b, "%s%s · ←/→ adjust · enter render · q cancel\n", strings.Repeat(" ", margin), state)
	return b.String()
}

// Run shows the compare view until the user accepts or cancels. It returns
// the final position and whether it was accepted.
func Run(ctx context.Context, in io.Reader, out io.Writer, position float64) (float64, bool, error) {
	c := NewCompare(position)
	p := tea.NewProgram(c,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if err != nil {
		return position, false, fmt.Errorf("compare view: %w", err)
	}
	fc := final.(*Compare)
	return fc.Position(), fc.Accepted(), nil
}
