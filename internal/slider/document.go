package slider

import "sync"

type EventKind int

const (
	PointerMove EventKind = iota
	PointerUp
)

func (k EventKind) String() string {
	switch k {
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	default:
		return "unknown"
	}
}

// Source distinguishes mouse input from touch input. Both drive the slider
// identically; the source is kept for logging.
type Source int

const (
	Mouse Source = iota
	Touch
)

// Event is a pointer event delivered at document level. For touch events X
// is the position of the first touch point.
type Event struct {
	Kind   EventKind
	Source Source
	X      float64
}

// Document is the document-wide pointer event hub. Widgets listen on it to
// see pointer moves and releases that happen outside their own bounds.
type Document struct {
	mu        sync.Mutex
	listeners map[uint64]func(Event)
	next      uint64
}

func NewDocument() *Document {
	return &Document{listeners: make(map[uint64]func(Event))}
}

// Listen installs fn and returns the function that removes it. The remove
// function is idempotent.
func (d *Document) Listen(fn func(Event)) (remove func()) {
	d.mu.Lock()
	id := d.next
	d.next++
	d.listeners[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every listener installed when Dispatch was called.
// Listeners may remove themselves (or others) from within the callback.
func (d *Document) Dispatch(ev Event) {
	d.mu.Lock()
	fns := make([]func(Event), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Listeners returns the number of installed listeners.
func (d *Document) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}
