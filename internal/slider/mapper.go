// Package slider models the before/after compare widget: a draggable
// vertical boundary over two stacked images, with the before image
// revealed to the left of the boundary.
package slider

// Rect is the horizontal extent of the compare container in screen units.
type Rect struct {
	Left  float64
	Width float64
}

// Percent maps an absolute pointer x position to how far across the
// container it lies, in [0, 100]. Positions left of the container map to 0
// and positions right of it map to 100.
//
// width must be positive. A zero or negative width yields 0.
func Percent(left, width, x float64) float64 {
	if width <= 0 {
		return 0
	}
	offset := clamp(x-left, 0, width)
	return clamp(offset/width*100, 0, 100)
}

// Percent maps x against r.
func (r Rect) Percent(x float64) float64 {
	return Percent(r.Left, r.Width, x)
}

// X is the inverse of Percent: the absolute x position of pct within r.
func (r Rect) X(pct float64) float64 {
	return r.Left + r.Width*clamp(pct, 0, 100)/100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
