package app

import (
	"math"
	"time"

	"github.com/gogpu/gg"
)

// orbitPeriod is how long the marker takes to go once around.
const orbitPeriod = 4 * time.Second

// scene is the frame content: a marker orbiting the centre and a dot
// under the last mouse position.
type scene struct {
	background gg.RGBA
	foreground gg.RGBA

	focused    bool
	hasPointer bool
	pointerX   int // cells
	pointerY   int
}

// draw renders the scene at time t into dc.
func (s *scene) draw(dc *gg.Context, t time.Duration) error {
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.ClearWithColor(s.background)

	fg := s.foreground
	if !s.focused {
		fg = gg.RGBA{R: fg.R / 2, G: fg.G / 2, B: fg.B / 2, A: fg.A}
	}
	dc.SetRGB(fg.R, fg.G, fg.B)

	angle := 2 * math.Pi * float64(t%orbitPeriod) / float64(orbitPeriod)
	cx := w/2 + math.Cos(angle)*w/4
	cy := h/2 + math.Sin(angle)*h/4
	dc.DrawCircle(cx, cy, math.Max(1, math.Min(w, h)/6))
	if err := dc.Fill(); err != nil {
		return err
	}

	if s.hasPointer {
		// A cell is one pixel wide and two tall.
		dc.DrawRectangle(float64(s.pointerX), float64(2*s.pointerY), 1, 2)
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return nil
}
