package platform

import (
	"errors"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/gdamore/tcell/v2"
)

// ErrAlreadyOpen is returned by Open when the backend already owns a window.
var ErrAlreadyOpen = errors.New("window already open")

type wakeToken struct{}

type closeToken struct{}

// ScreenFactory creates the tcell screen that backs a window.
type ScreenFactory func() (tcell.Screen, error)

// Terminal implements Backend on top of a tcell screen.
type Terminal struct {
	newScreen    ScreenFactory
	closeSignals []os.Signal
	mouse        bool

	window atomic.Pointer[Window]
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithScreenFactory replaces tcell.NewScreen as the screen constructor.
func WithScreenFactory(f ScreenFactory) TerminalOption {
	return func(t *Terminal) {
		t.newScreen = f
	}
}

// WithCloseSignals sets the OS signals that are reported as close requests
// while a window is open. Passing no signals disables signal handling.
func WithCloseSignals(sigs ...os.Signal) TerminalOption {
	return func(t *Terminal) {
		t.closeSignals = sigs
	}
}

// WithMouse enables or disables mouse reporting (enabled by default).
func WithMouse(enabled bool) TerminalOption {
	return func(t *Terminal) {
		t.mouse = enabled
	}
}

// NewTerminal creates a terminal backend. No screen is created until Open.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{
		newScreen:    tcell.NewScreen,
		closeSignals: []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP},
		mouse:        true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open creates and initializes the screen.
func (t *Terminal) Open(cfg WindowConfig) (*Window, error) {
	if t.window.Load() != nil {
		return nil, ErrAlreadyOpen
	}

	screen, err := t.newScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	if t.mouse {
		screen.EnableMouse()
	}
	screen.EnablePaste()
	screen.EnableFocus()

	if cfg.Title != "" {
		screen.SetTitle(cfg.Title)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		screen.SetSize(cfg.Width, cfg.Height)
	}

	w := &Window{screen: screen, title: cfg.Title}
	if len(t.closeSignals) > 0 {
		w.watchSignals(t.closeSignals)
	}
	t.window.Store(w)
	return w, nil
}

// PollEvent blocks on the screen's event queue.
func (t *Terminal) PollEvent() Event {
	w := t.window.Load()
	if w == nil {
		return Event{Type: EventNone}
	}
	ev := w.screen.PollEvent()
	if ev == nil {
		// Screen finalized underneath us.
		return Event{Type: EventNone}
	}
	return convertEvent(ev)
}

// Wake posts a wakeup into the screen's queue. Before Open there is no queue
// and Wake is a no-op; the event loop reads commands directly until then.
func (t *Terminal) Wake() {
	if w := t.window.Load(); w != nil {
		// A full queue already guarantees PollEvent returns soon.
		_ = w.screen.PostEvent(tcell.NewEventInterrupt(wakeToken{}))
	}
}

// Close finalizes the screen.
func (t *Terminal) Close() {
	if w := t.window.Swap(nil); w != nil {
		w.close()
	}
}

// convertEvent converts tcell events to our Event type.
func convertEvent(ev tcell.Event) Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return Event{
			Type: EventKey,
			When: e.When(),
			Key:  e.Key(),
			Rune: e.Rune(),
			Mod:  e.Modifiers(),
			Name: e.Name(),
		}

	case *tcell.EventMouse:
		x, y := e.Position()
		return Event{
			Type:    EventMouse,
			When:    e.When(),
			MouseX:  x,
			MouseY:  y,
			Buttons: e.Buttons(),
			Mod:     e.Modifiers(),
		}

	case *tcell.EventResize:
		w, h := e.Size()
		return Event{
			Type:   EventResize,
			When:   e.When(),
			Width:  w,
			Height: h,
		}

	case *tcell.EventFocus:
		return Event{
			Type:    EventFocus,
			When:    e.When(),
			Focused: e.Focused,
		}

	case *tcell.EventPaste:
		return Event{
			Type:       EventPaste,
			When:       e.When(),
			PasteStart: e.Start(),
		}

	case *tcell.EventInterrupt:
		switch e.Data().(type) {
		case wakeToken:
			return Event{Type: EventWake, When: e.When()}
		case closeToken:
			return Event{Type: EventClose, When: e.When()}
		}
		return Event{Type: EventNone, When: e.When()}

	default:
		return Event{Type: EventNone}
	}
}
