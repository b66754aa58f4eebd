// Package render rasterizes frames with gg and presents them on a window
// canvas using half-block cells, two pixels per cell.
package render

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"

	"github.com/dshills/windbus/internal/eventloop"
	"github.com/dshills/windbus/internal/platform"
)

// halfBlock draws the top pixel as foreground and the bottom as background.
const halfBlock = '▀'

// ErrSurfaceClosed is returned by a closed surface.
var ErrSurfaceClosed = errors.New("surface closed")

// Instance creates gg surfaces. It is lent to the owning thread through
// Proxy.CreateSurface and handed back with the surface.
type Instance struct {
	background gg.RGBA

	mu       sync.Mutex
	surfaces int
}

// NewInstance creates an instance whose surfaces start cleared to background.
func NewInstance(background gg.RGBA) *Instance {
	return &Instance{background: background}
}

// CreateSurface binds a new surface to the window canvas. The window must
// have a non-empty size.
func (i *Instance) CreateSurface(w *platform.Window) (eventloop.Surface, error) {
	if w == nil {
		return nil, errors.New("render: nil window")
	}
	canvas := w.Canvas()
	cols, rows := canvas.Size()
	if cols <= 0 || rows <= 0 {
		return nil, errors.New("render: window has no area")
	}

	dc := gg.NewContext(cols, rows*2)
	dc.ClearWithColor(i.background)

	i.mu.Lock()
	i.surfaces++
	i.mu.Unlock()

	return &Surface{canvas: canvas, dc: dc}, nil
}

// Surfaces returns how many surfaces the instance has created.
func (i *Instance) Surfaces() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.surfaces
}

// Surface is a gg drawing context presented onto a canvas. It is used
// from one rendering goroutine.
type Surface struct {
	mu     sync.Mutex
	canvas platform.Canvas
	dc     *gg.Context
	closed bool
}

// Context returns the drawing context for the next frame.
func (s *Surface) Context() *gg.Context {
	return s.dc
}

// Size returns the surface size in pixels.
func (s *Surface) Size() (width, height int) {
	return s.dc.Width(), s.dc.Height()
}

// Fit resizes the drawing context to the canvas. It reports whether the
// size changed; the context is cleared when it did.
func (s *Surface) Fit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSurfaceClosed
	}

	cols, rows := s.canvas.Size()
	if cols == s.dc.Width() && rows*2 == s.dc.Height() {
		return false, nil
	}
	if err := s.dc.Resize(cols, rows*2); err != nil {
		return false, err
	}
	return true, nil
}

// Present copies the frame onto the canvas and shows it.
func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}

	img := s.dc.Image()
	cols, rows := s.canvas.Size()
	cols = min(cols, s.dc.Width())
	rows = min(rows, s.dc.Height()/2)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			style := tcell.StyleDefault.
				Foreground(cellColor(img, x, 2*y)).
				Background(cellColor(img, x, 2*y+1))
			s.canvas.SetContent(x, y, halfBlock, nil, style)
		}
	}
	s.canvas.Show()
	return nil
}

// Close releases the drawing context. Further calls are no-ops.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dc.Close()
}

func cellColor(img image.Image, x, y int) tcell.Color {
	c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
