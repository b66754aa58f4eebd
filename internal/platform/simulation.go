package platform

import (
	"github.com/gdamore/tcell/v2"
)

// Simulation is a Terminal backed by tcell's simulation screen.
// Tests use it to inject input without a real terminal.
type Simulation struct {
	*Terminal
	screen  tcell.SimulationScreen
	openErr error
}

// NewSimulation creates a simulation backend. Signals are never watched.
func NewSimulation(opts ...TerminalOption) *Simulation {
	s := &Simulation{screen: tcell.NewSimulationScreen("")}
	opts = append(opts,
		WithScreenFactory(s.factory),
		WithCloseSignals(),
	)
	s.Terminal = NewTerminal(opts...)
	return s
}

func (s *Simulation) factory() (tcell.Screen, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.screen, nil
}

// FailOpen makes Open return err. Must be called before the loop starts.
func (s *Simulation) FailOpen(err error) {
	s.openErr = err
}

// Screen exposes the simulation screen.
func (s *Simulation) Screen() tcell.SimulationScreen {
	return s.screen
}

// InjectKey queues a key press. Events injected before Open are lost.
func (s *Simulation) InjectKey(key tcell.Key, r rune, mod tcell.ModMask) {
	s.screen.InjectKey(key, r, mod)
}

// InjectMouse queues a mouse event.
func (s *Simulation) InjectMouse(x, y int, buttons tcell.ButtonMask, mod tcell.ModMask) {
	s.screen.InjectMouse(x, y, buttons, mod)
}

// RequestClose queues a close request on the open window, if any.
func (s *Simulation) RequestClose() {
	if w := s.window.Load(); w != nil {
		w.RequestClose()
	}
}

// Resize changes the simulated window size and queues the resize event.
func (s *Simulation) Resize(width, height int) {
	s.screen.SetSize(width, height)
	_ = s.screen.PostEvent(tcell.NewEventResize(width, height))
}
