// Package platform provides the window system the event loop pumps.
//
// The window system is a tcell screen. Its event queue is read with a
// blocking PollEvent that must only ever be called from the goroutine
// running the event loop; every other method documented as goroutine-safe
// may be called from anywhere.
package platform

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// EventType identifies the type of platform event.
type EventType int

const (
	EventNone EventType = iota
	// EventWake carries no data; it only unblocks PollEvent.
	EventWake
	EventKey
	EventMouse
	EventResize
	EventFocus
	EventPaste
	// EventClose is a request to close the window, not a close.
	EventClose
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventWake:
		return "wake"
	case EventKey:
		return "key"
	case EventMouse:
		return "mouse"
	case EventResize:
		return "resize"
	case EventFocus:
		return "focus"
	case EventPaste:
		return "paste"
	case EventClose:
		return "close"
	default:
		return "none"
	}
}

// Event is a platform event translated out of tcell.
type Event struct {
	Type EventType
	When time.Time

	// Key event fields
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
	Name string

	// Mouse event fields
	MouseX, MouseY int
	Buttons        tcell.ButtonMask

	// Resize event fields
	Width, Height int

	// Focus and paste event fields
	Focused    bool
	PasteStart bool
}

// WindowConfig describes the window to open.
// A zero Width or Height keeps whatever size the platform picks.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
}

// Backend is a window system whose event queue is pumped by one goroutine.
type Backend interface {
	// Open creates the window. Called only from the pumping goroutine.
	Open(cfg WindowConfig) (*Window, error)

	// PollEvent waits for and returns the next event.
	// This is a blocking call and is only valid after Open succeeded.
	PollEvent() Event

	// Wake makes a pending or future PollEvent return an EventWake.
	// Safe to call from any goroutine, before or after Open.
	Wake()

	// Close finalizes the window, if any, and restores the terminal.
	Close()
}
