package eventloop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/dshills/windbus/internal/platform"
)

// Stats are running counters for a loop.
type Stats struct {
	CommandsDispatched uint64
	EventsForwarded    uint64
	EventsDropped      uint64
}

// Loop drives a platform backend and the command bus from one goroutine.
type Loop struct {
	backend platform.Backend
	config  loopConfig
	log     *slog.Logger

	started atomic.Bool

	dispatched atomic.Uint64
	forwarded  atomic.Uint64
	dropped    atomic.Uint64
}

// New creates a loop over backend. Nothing runs until Run.
func New(backend platform.Backend, opts ...Option) *Loop {
	config := defaultLoopConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Loop{
		backend: backend,
		config:  config,
		log:     config.log().With("component", "eventloop"),
	}
}

// Run creates a loop and runs it. See (*Loop).Run.
func Run(backend platform.Backend, handoff chan<- *Proxy, opts ...Option) error {
	return New(backend, opts...).Run(handoff)
}

// Stats returns a snapshot of the loop counters. Safe from any goroutine.
func (l *Loop) Stats() Stats {
	return Stats{
		CommandsDispatched: l.dispatched.Load(),
		EventsForwarded:    l.forwarded.Load(),
		EventsDropped:      l.dropped.Load(),
	}
}

// Run takes over the calling goroutine. In a real process that goroutine
// must be the one locked to the main OS thread.
//
// Run creates the command bus, sends a Proxy on handoff, and then pumps
// commands and platform events until a Proxy sends Exit (or a close
// request arrives under CloseExitWhenUnsubscribed). It then closes the
// window, restoring the terminal, and returns nil; the caller is expected
// to exit the process. A loop can only run once.
func (l *Loop) Run(handoff chan<- *Proxy) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}

	commands := make(chan command, l.config.commandBuffer)
	done := make(chan struct{})
	state := &loopState{backend: l.backend}

	defer func() {
		close(done)
		l.backend.Close()
		st := l.Stats()
		l.log.Info("event loop stopped",
			"commands", st.CommandsDispatched,
			"forwarded", st.EventsForwarded,
			"dropped", st.EventsDropped,
		)
	}()

	handoff <- newProxy(commands, done, l.backend.Wake)
	l.log.Info("event loop started", "close_policy", l.config.closePolicy.String())

	for {
		// Until a window exists there is no platform queue to wait on.
		if state.window == nil {
			if l.handle(state, <-commands) {
				return nil
			}
			continue
		}

		// Commands sent while the window was being created may not have
		// posted a wakeup, so always drain before blocking.
		if l.drain(state, commands) {
			return nil
		}
		if l.route(state, l.backend.PollEvent()) {
			return nil
		}
	}
}

// drain dispatches every queued command in order.
func (l *Loop) drain(state *loopState, commands <-chan command) (exit bool) {
	for {
		select {
		case cmd := <-commands:
			if l.handle(state, cmd) {
				return true
			}
		default:
			return false
		}
	}
}

func (l *Loop) handle(state *loopState, cmd command) (exit bool) {
	hadWindow := state.window != nil
	exit = state.dispatch(cmd)
	l.dispatched.Add(1)

	h := cmd.origin()
	if l.log.Enabled(context.Background(), slog.LevelDebug) {
		l.log.Debug("dispatched", "command", cmd.name(), "proxy", h.proxy.String(), "seq", h.seq)
	}

	if !hadWindow && state.window != nil {
		width, height := state.window.Size()
		l.log.Info("window created", "width", width, "height", height)
	}
	if exit {
		l.log.Info("exit requested", "proxy", h.proxy.String())
	}
	return exit
}

// route fans a platform event out to the registered sink.
func (l *Loop) route(state *loopState, ev platform.Event) (exit bool) {
	switch ev.Type {
	case platform.EventKey, platform.EventMouse:
		de, _ := deviceEvent(ev)
		l.count(offer(state.deviceSink, de))

	case platform.EventClose:
		if state.windowSink == nil && l.config.closePolicy == CloseExitWhenUnsubscribed {
			l.log.Info("close requested with no subscriber")
			return true
		}
		we, _ := windowEvent(ev)
		l.count(offer(state.windowSink, we))

	case platform.EventResize, platform.EventFocus:
		we, _ := windowEvent(ev)
		l.count(offer(state.windowSink, we))
	}
	return false
}

func (l *Loop) count(delivered bool) {
	if delivered {
		l.forwarded.Add(1)
	} else {
		l.dropped.Add(1)
	}
}

// offer sends ev without blocking. It reports false when there is no sink
// or the sink is full.
func offer[T any](sink chan<- T, ev T) bool {
	if sink == nil {
		return false
	}
	select {
	case sink <- ev:
		return true
	default:
		return false
	}
}
