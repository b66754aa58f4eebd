package eventloop

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/windbus/internal/platform"
)

// Size is a window size in cells.
type Size struct {
	Width  int
	Height int
}

// String returns "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// WindowParams describes the window to create.
// A zero Width or Height keeps the platform's size.
type WindowParams struct {
	Title  string
	Width  int
	Height int
}

func (p WindowParams) validate() error {
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, p.Width, p.Height)
	}
	if (p.Width == 0) != (p.Height == 0) {
		return fmt.Errorf("%w: width and height must both be set or both be zero", ErrInvalidParams)
	}
	return nil
}

// Instance is a graphics backend instance. It is carried to the owning
// thread for the duration of CreateSurface and handed back afterwards.
type Instance interface {
	CreateSurface(w *platform.Window) (Surface, error)
}

// Surface is a render target bound to the window.
type Surface interface {
	// Size returns the surface size in pixels.
	Size() (width, height int)
	// Present pushes the current frame to the window.
	Present() error
	// Close releases the surface.
	Close() error
}

// DeviceID identifies the input device an event came from.
type DeviceID int

const (
	DeviceKeyboard DeviceID = iota + 1
	DeviceMouse
)

// DeviceEventKind identifies the kind of device event.
type DeviceEventKind int

const (
	DeviceKey DeviceEventKind = iota + 1
	DeviceButton
)

// DeviceEvent is a copy of raw device input.
type DeviceEvent struct {
	Device DeviceID
	Kind   DeviceEventKind
	When   time.Time

	// Key fields
	Key  tcell.Key
	Rune rune
	Name string
	Mod  tcell.ModMask

	// Mouse fields
	X, Y    int
	Buttons tcell.ButtonMask
}

// WindowEventKind identifies the kind of window event.
type WindowEventKind int

const (
	// CloseRequested means the user or OS asked the window to close.
	// The window stays open until someone sends Exit.
	CloseRequested WindowEventKind = iota + 1
	Resized
	Focused
)

// String returns the kind name.
func (k WindowEventKind) String() string {
	switch k {
	case CloseRequested:
		return "close-requested"
	case Resized:
		return "resized"
	case Focused:
		return "focused"
	default:
		return "unknown"
	}
}

// WindowEvent is a copy of a window lifecycle notification.
type WindowEvent struct {
	Kind WindowEventKind
	When time.Time

	// Resized fields
	Width, Height int

	// Focused field
	Focused bool
}

// deviceEvent translates a platform key or mouse event.
func deviceEvent(ev platform.Event) (DeviceEvent, bool) {
	switch ev.Type {
	case platform.EventKey:
		return DeviceEvent{
			Device: DeviceKeyboard,
			Kind:   DeviceKey,
			When:   ev.When,
			Key:    ev.Key,
			Rune:   ev.Rune,
			Name:   ev.Name,
			Mod:    ev.Mod,
		}, true
	case platform.EventMouse:
		return DeviceEvent{
			Device:  DeviceMouse,
			Kind:    DeviceButton,
			When:    ev.When,
			X:       ev.MouseX,
			Y:       ev.MouseY,
			Buttons: ev.Buttons,
			Mod:     ev.Mod,
		}, true
	default:
		return DeviceEvent{}, false
	}
}

// windowEvent translates a platform window event.
func windowEvent(ev platform.Event) (WindowEvent, bool) {
	switch ev.Type {
	case platform.EventClose:
		return WindowEvent{Kind: CloseRequested, When: ev.When}, true
	case platform.EventResize:
		return WindowEvent{Kind: Resized, When: ev.When, Width: ev.Width, Height: ev.Height}, true
	case platform.EventFocus:
		return WindowEvent{Kind: Focused, When: ev.When, Focused: ev.Focused}, true
	default:
		return WindowEvent{}, false
	}
}
