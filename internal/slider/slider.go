package slider

import "sync"

const InitialPosition = 50.0

// Slider holds the boundary position and the drag state of one compare
// widget. While dragging it holds exactly one listener on its Document;
// the listener is removed when the drag ends or the slider is closed.
type Slider struct {
	mu       sync.Mutex
	doc      *Document
	bounds   Rect
	position float64
	dragging bool
	release  func()
	onChange func(float64)
}

func New(doc *Document, bounds Rect) *Slider {
	return &Slider{
		doc:      doc,
		bounds:   bounds,
		position: InitialPosition,
	}
}

// OnChange registers a callback invoked after every position update.
func (s *Slider) OnChange(fn func(position float64)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Slider) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Slider) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

func (s *Slider) Bounds() Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds
}

// Resize updates the container extent used to map pointer positions.
func (s *Slider) Resize(bounds Rect) {
	s.mu.Lock()
	s.bounds = bounds
	s.mu.Unlock()
}

// ClipInset is the right-hand inset, in percent, applied to the before
// image so that only the left Position percent of it is visible.
func (s *Slider) ClipInset() float64 {
	return 100 - s.Position()
}

// SetPosition moves the boundary directly, for keyboard control.
func (s *Slider) SetPosition(pct float64) {
	s.mu.Lock()
	s.position = clamp(pct, 0, 100)
	pos, fn := s.position, s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(pos)
	}
}

// HandleX is the absolute x position of the handle.
func (s *Slider) HandleX() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds.X(s.position)
}

// PointerDown starts a drag. It is called for a mouse-down or touch-start
// on the handle. Calling it while already dragging does nothing.
func (s *Slider) PointerDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging {
		return
	}
	s.dragging = true
	s.release = s.doc.Listen(s.handle)
}

// Close ends any drag in progress and removes the document listener.
func (s *Slider) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Slider) handle(ev Event) {
	s.mu.Lock()
	if !s.dragging {
		s.mu.Unlock()
		return
	}

	switch ev.Kind {
	case PointerUp:
		s.stopLocked()
		s.mu.Unlock()
	case PointerMove:
		s.position = s.bounds.Percent(ev.X)
		pos, fn := s.position, s.onChange
		s.mu.Unlock()
		if fn != nil {
			fn(pos)
		}
	default:
		s.mu.Unlock()
	}
}

func (s *Slider) stopLocked() {
	s.dragging = false
	if s.release != nil {
		s.release()
		s.release = nil
	}
}
