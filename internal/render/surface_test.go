package render

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"

	"github.com/dshills/windbus/internal/platform"
)

func openWindow(t *testing.T, width, height int) (*platform.Simulation, *platform.Window) {
	t.Helper()
	sim := platform.NewSimulation()
	w, err := sim.Open(platform.WindowConfig{Width: width, Height: height})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(sim.Close)
	return sim, w
}

func cellAt(t *testing.T, sim *platform.Simulation, x, y int) (rune, tcell.Color, tcell.Color) {
	t.Helper()
	cells, width, _ := sim.Screen().GetContents()
	cell := cells[y*width+x]
	if len(cell.Runes) == 0 {
		t.Fatalf("cell (%d,%d) is empty", x, y)
	}
	fg, bg, _ := cell.Style.Decompose()
	return cell.Runes[0], fg, bg
}

func TestCreateSurfaceSize(t *testing.T) {
	_, w := openWindow(t, 12, 5)
	inst := NewInstance(gg.RGB(0, 0, 0))

	s, err := inst.CreateSurface(w)
	if err != nil {
		t.Fatalf("CreateSurface failed: %v", err)
	}
	defer s.Close()

	if width, height := s.Size(); width != 12 || height != 10 {
		t.Errorf("expected 12x10 pixels, got %dx%d", width, height)
	}
	if inst.Surfaces() != 1 {
		t.Errorf("expected 1 surface, got %d", inst.Surfaces())
	}
}

func TestCreateSurfaceNilWindow(t *testing.T) {
	if _, err := NewInstance(gg.RGB(0, 0, 0)).CreateSurface(nil); err == nil {
		t.Error("expected error for nil window")
	}
}

func TestPresent(t *testing.T) {
	sim, w := openWindow(t, 4, 4)
	s, err := NewInstance(gg.RGB(1, 0, 0)).CreateSurface(w)
	if err != nil {
		t.Fatal(err)
	}
	surface := s.(*Surface)
	defer surface.Close()

	// Top half blue, bottom half left at the red background.
	dc := surface.Context()
	dc.SetRGB(0, 0, 1)
	dc.DrawRectangle(0, 0, 4, 4)
	if err := dc.Fill(); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if err := surface.Present(); err != nil {
		t.Fatalf("Present failed: %v", err)
	}

	blue := tcell.NewRGBColor(0, 0, 255)
	red := tcell.NewRGBColor(255, 0, 0)

	r, fg, bg := cellAt(t, sim, 1, 1)
	if r != halfBlock {
		t.Errorf("expected half block, got %q", r)
	}
	if fg != blue || bg != blue {
		t.Errorf("cell (1,1): expected blue/blue, got %v/%v", fg, bg)
	}

	_, fg, bg = cellAt(t, sim, 1, 3)
	if fg != red || bg != red {
		t.Errorf("cell (1,3): expected red/red, got %v/%v", fg, bg)
	}
}

func TestFit(t *testing.T) {
	sim, w := openWindow(t, 8, 4)
	s, err := NewInstance(gg.RGB(0, 0, 0)).CreateSurface(w)
	if err != nil {
		t.Fatal(err)
	}
	surface := s.(*Surface)
	defer surface.Close()

	changed, err := surface.Fit()
	if err != nil || changed {
		t.Fatalf("Fit on unchanged canvas: changed=%v err=%v", changed, err)
	}

	sim.Screen().SetSize(10, 6)
	changed, err = surface.Fit()
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if !changed {
		t.Error("expected Fit to report a change")
	}
	if width, height := surface.Size(); width != 10 || height != 12 {
		t.Errorf("expected 10x12 after fit, got %dx%d", width, height)
	}
}

func TestClosedSurface(t *testing.T) {
	_, w := openWindow(t, 4, 2)
	s, err := NewInstance(gg.RGB(0, 0, 0)).CreateSurface(w)
	if err != nil {
		t.Fatal(err)
	}
	surface := s.(*Surface)

	if err := surface.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := surface.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := surface.Present(); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("expected ErrSurfaceClosed, got %v", err)
	}
	if _, err := surface.Fit(); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("expected ErrSurfaceClosed from Fit, got %v", err)
	}
}
