package platform

import (
	"os"
	"os/signal"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Canvas is the drawing side of a window. tcell screens lock internally,
// so a Canvas may be handed to a rendering goroutine.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
	Show()
}

// Window is an open platform window.
//
// Size and SetTitle belong to the goroutine pumping the backend. Canvas and
// RequestClose may be used from anywhere.
type Window struct {
	screen tcell.Screen
	title  string

	stopOnce sync.Once
	stop     chan struct{}
}

// Size returns the window size in cells.
func (w *Window) Size() (width, height int) {
	return w.screen.Size()
}

// Title returns the last title set on the window.
func (w *Window) Title() string {
	return w.title
}

// SetTitle changes the window title.
func (w *Window) SetTitle(title string) {
	w.title = title
	w.screen.SetTitle(title)
}

// Canvas returns the surface target for this window.
func (w *Window) Canvas() Canvas {
	return w.screen
}

// RequestClose queues a close request. The loop decides what it means.
func (w *Window) RequestClose() {
	_ = w.screen.PostEvent(tcell.NewEventInterrupt(closeToken{}))
}

// watchSignals turns OS signals into close requests until the window closes.
func (w *Window) watchSignals(sigs []os.Signal) {
	w.stop = make(chan struct{})
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ch:
				w.RequestClose()
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *Window) close() {
	w.stopOnce.Do(func() {
		if w.stop != nil {
			close(w.stop)
		}
		w.screen.Fini()
	})
}
