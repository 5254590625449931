package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"

	"github.com/manash/roomdesign/internal/image"
	"github.com/manash/roomdesign/pkg/models"
)

var ErrNothingToShow = errors.New("no image to show")

// Displayer renders designs inline in terminals that speak the kitty
// graphics protocol.
type Displayer struct {
	out     io.Writer
	columns int
}

func New(out io.Writer) *Displayer {
	return &Displayer{out: out}
}

// SetColumns caps the rendered width in terminal cells.
func (d *Displayer) SetColumns(n int) {
	d.columns = n
}

// Show prints an optional caption followed by the image. Non-PNG images
// are converted first since the protocol is used in PNG mode.
func (d *Displayer) Show(caption string, img models.Image) error {
	if img.IsEmpty() {
		return ErrNothingToShow
	}

	pngImg, err := image.ToPNG(img)
	if err != nil {
		return fmt.Errorf("failed to prepare image: %w", err)
	}

	if caption != "" {
		fmt.Fprintln(d.out, caption)
	}

	enc := NewKittyEncoder(d.out).WithColumns(d.columns)
	if err := enc.Encode(pngImg.Data); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	fmt.Fprintln(d.out)
	return nil
}

// Supported reports whether out is a terminal with kitty graphics support.
func Supported(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return IsTerminalSupported()
}

// Width returns the terminal width in cells, or 0 when out is not a
// terminal.
func Width(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

func IsTerminalSupported() bool {
	termProgram := strings.ToLower(os.Getenv("TERM_PROGRAM"))
	if slices.Contains([]string{"kitty", "ghostty", "iterm.app", "wezterm"}, termProgram) {
		return true
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" || os.Getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	termName := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(termName, "kitty") || strings.Contains(termName, "ghostty")
}
