package eventloop

import (
	"github.com/dshills/windbus/internal/platform"
)

// loopState is owned by the goroutine running the loop. Nothing else
// holds a reference to it; other goroutines reach it through commands.
type loopState struct {
	backend platform.Backend

	// window goes from nil to non-nil at most once and is never cleared
	// while the loop runs.
	window *platform.Window

	deviceSink chan<- DeviceEvent
	windowSink chan<- WindowEvent
}

// dispatch applies one command. Every reply is sent before dispatch
// returns, after the state change it reports has been made.
// It returns true when the loop should stop.
func (s *loopState) dispatch(cmd command) (exit bool) {
	switch c := cmd.(type) {
	case createWindowCmd:
		size, err := s.createWindow(c.params)
		c.reply <- result[Size]{val: size, err: err}

	case createSurfaceCmd:
		surface, err := s.createSurface(c.instance)
		c.reply <- result[surfaceReply]{
			val: surfaceReply{instance: c.instance, surface: surface},
			err: err,
		}

	case registerDeviceSinkCmd:
		s.deviceSink = c.sink

	case registerWindowSinkCmd:
		s.windowSink = c.sink

	case queryWindowSizeCmd:
		size, err := s.windowSize()
		c.reply <- result[Size]{val: size, err: err}

	case setTitleCmd:
		c.reply <- result[struct{}]{err: s.setTitle(c.title)}

	case exitCmd:
		return true
	}
	return false
}

func (s *loopState) createWindow(params WindowParams) (Size, error) {
	if s.window != nil {
		return Size{}, ErrWindowExists
	}
	if err := params.validate(); err != nil {
		return Size{}, err
	}

	w, err := s.backend.Open(platform.WindowConfig{
		Title:  params.Title,
		Width:  params.Width,
		Height: params.Height,
	})
	if err != nil {
		return Size{}, &PlatformError{Op: "create window", Err: err}
	}

	s.window = w
	return s.windowSize()
}

func (s *loopState) createSurface(instance Instance) (Surface, error) {
	if s.window == nil {
		return nil, ErrWindowMissing
	}
	if instance == nil {
		return nil, ErrNilInstance
	}

	surface, err := instance.CreateSurface(s.window)
	if err != nil {
		return nil, &PlatformError{Op: "create surface", Err: err}
	}
	return surface, nil
}

func (s *loopState) windowSize() (Size, error) {
	if s.window == nil {
		return Size{}, ErrWindowMissing
	}
	w, h := s.window.Size()
	return Size{Width: w, Height: h}, nil
}

func (s *loopState) setTitle(title string) error {
	if s.window == nil {
		return ErrWindowMissing
	}
	s.window.SetTitle(title)
	return nil
}
