package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"

	"github.com/dshills/windbus/internal/config"
	"github.com/dshills/windbus/internal/config/notify"
	"github.com/dshills/windbus/internal/eventloop"
	"github.com/dshills/windbus/internal/logging"
	"github.com/dshills/windbus/internal/render"
	"github.com/dshills/windbus/internal/script"
)

// Sink capacities. Events beyond these are dropped by the event loop.
const (
	deviceBuffer = 64
	windowBuffer = 16
)

// Options configures the application.
type Options struct {
	// Config is required.
	Config *config.Config

	// Policy decides what keys and close requests do. If nil the policy
	// named by the config is loaded, and closed when Run returns.
	Policy *script.Policy

	// Instance creates the render surface. Defaults to one cleared to the
	// configured background.
	Instance *render.Instance

	Logger  *slog.Logger
	Metrics *Metrics
}

// Application drives one window through an event loop proxy.
type Application struct {
	cfg        *config.Config
	policy     *script.Policy
	ownsPolicy bool
	instance   *render.Instance
	log        *slog.Logger
	metrics    *Metrics

	running atomic.Bool
	ready   chan struct{}

	mu    sync.Mutex
	title string

	// Owned by the goroutine in Run.
	proxy    *eventloop.Proxy
	surface  *render.Surface
	settings config.AppConfig
	scene    scene
	started  time.Time
}

// New creates an application. Nothing happens until Run.
func New(opts Options) (*Application, error) {
	if opts.Config == nil {
		return nil, errors.New("app: config is required")
	}

	app := &Application{
		cfg:      opts.Config,
		policy:   opts.Policy,
		instance: opts.Instance,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		ready:    make(chan struct{}),
	}
	if app.log == nil {
		app.log = logging.Logger()
	}
	app.log = app.log.With("component", "app")
	if app.metrics == nil {
		app.metrics = NewMetrics()
	}

	app.settings = app.cfg.App()
	app.scene = scene{
		background: app.settings.Background,
		foreground: app.settings.Foreground,
		focused:    true,
	}
	if app.instance == nil {
		app.instance = render.NewInstance(app.settings.Background)
	}

	if app.policy == nil {
		policy, err := script.Load(app.cfg.Script().Path, script.WithLogger(app.log))
		if err != nil {
			return nil, &OperationError{Op: "load policy", Err: err}
		}
		app.policy = policy
		app.ownsPolicy = true
	}

	return app, nil
}

// Ready is closed once the window, the surface and both subscriptions
// are in place.
func (app *Application) Ready() <-chan struct{} {
	return app.ready
}

// Title returns the last title applied to the window.
func (app *Application) Title() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.title
}

func (app *Application) setTitle(title string) {
	app.mu.Lock()
	app.title = title
	app.mu.Unlock()
}

// Metrics returns the application's metrics.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// Run creates the window and serves it until the policy, ctx or the loop
// ends it. Unless the loop has already stopped, Run sends Exit before
// returning, so the loop's Run returns too.
func (app *Application) Run(ctx context.Context, proxy *eventloop.Proxy) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)
	if app.ownsPolicy {
		defer app.policy.Close()
	}

	app.proxy = proxy
	app.started = time.Now()

	keys := make(chan eventloop.DeviceEvent, deviceBuffer)
	windows := make(chan eventloop.WindowEvent, windowBuffer)
	if err := app.setup(ctx, keys, windows); err != nil {
		if app.surface != nil {
			_ = app.surface.Close()
		}
		return app.fail(err)
	}
	defer app.surface.Close()
	close(app.ready)

	titles := make(chan string, 1)
	sub := app.cfg.Subscribe("window.title", func(ch notify.Change) {
		if ch.Type != notify.ChangeSet {
			return
		}
		// Only the latest title matters.
		select {
		case <-titles:
		default:
		}
		titles <- fmt.Sprint(ch.NewValue)
	})
	defer sub.Unsubscribe()

	reloads := make(chan error, 1)
	if app.cfg.Path() != "" {
		w, err := app.cfg.Watch(func(err error) {
			select {
			case reloads <- err:
			default:
			}
		})
		if err != nil {
			app.log.Warn("config watch disabled", "path", app.cfg.Path(), "error", err)
		} else {
			defer w.Close()
		}
	}

	ticker := time.NewTicker(app.settings.FrameInterval)
	defer ticker.Stop()
	app.renderFrame()

	for {
		select {
		case <-ctx.Done():
			app.exit("context done")
			return ctx.Err()

		case <-proxy.Done():
			return ErrLoopStopped

		case ev := <-keys:
			if app.handleDevice(ctx, ev) {
				app.exit("input policy")
				return nil
			}

		case ev := <-windows:
			if app.handleWindow(ev) {
				app.exit("close request")
				return nil
			}

		case <-ticker.C:
			app.renderFrame()

		case title := <-titles:
			app.retitle(ctx, title)

		case err := <-reloads:
			app.applyReload(err, ticker)
		}
	}
}

// setup creates the window and surface and subscribes to events.
func (app *Application) setup(ctx context.Context, keys chan eventloop.DeviceEvent, windows chan eventloop.WindowEvent) error {
	wc := app.cfg.Window()
	size, err := app.proxy.CreateWindow(ctx, eventloop.WindowParams{
		Title:  wc.Title,
		Width:  wc.Width,
		Height: wc.Height,
	})
	if err != nil {
		return &OperationError{Op: "create window", Err: err}
	}
	app.setTitle(wc.Title)
	app.log.Info("window created", "size", size.String())

	inst, surface, err := app.proxy.CreateSurface(ctx, app.instance)
	if err != nil {
		return &OperationError{Op: "create surface", Err: err}
	}
	app.instance = inst.(*render.Instance)
	app.surface = surface.(*render.Surface)

	if err := app.proxy.RegisterDeviceSubscriber(keys); err != nil {
		return &OperationError{Op: "subscribe", Err: err}
	}
	if err := app.proxy.RegisterWindowSubscriber(windows); err != nil {
		return &OperationError{Op: "subscribe", Err: err}
	}
	// Commands from one proxy are ordered, so both sinks are in place once
	// this answers.
	if _, err := app.proxy.QueryWindowSize(ctx); err != nil {
		return &OperationError{Op: "query window size", Err: err}
	}
	return nil
}

// fail logs err, asks the loop to exit and returns err.
func (app *Application) fail(err error) error {
	app.log.Error("application failed", "error", err)
	if exitErr := app.proxy.Exit(); exitErr != nil && !errors.Is(exitErr, eventloop.ErrBusClosed) {
		app.log.Warn("exit not delivered", "error", exitErr)
	}
	return err
}

func (app *Application) exit(reason string) {
	st := app.metrics.Snapshot()
	app.log.Info("exiting",
		"reason", reason,
		"frames", st.FrameCount,
		"avg_fps", st.AvgFPS(),
		"inputs", st.InputCount,
	)
	if err := app.proxy.Exit(); err != nil && !errors.Is(err, eventloop.ErrBusClosed) {
		app.log.Warn("exit not delivered", "error", err)
	}
}

// handleDevice applies one device event. It reports whether to exit.
func (app *Application) handleDevice(ctx context.Context, ev eventloop.DeviceEvent) bool {
	start := time.Now()
	defer func() { app.metrics.RecordInput(time.Since(start)) }()

	if ev.Device == eventloop.DeviceMouse {
		app.scene.hasPointer = true
		app.scene.pointerX, app.scene.pointerY = ev.X, ev.Y
		return false
	}

	action, err := app.policy.OnKey(script.Key{Name: ev.Name, Rune: keyRune(ev), Mods: modNames(ev.Mod)})
	if err != nil {
		app.log.Warn("key hook failed", "key", ev.Name, "error", err)
		return false
	}

	switch action.Kind {
	case script.ActionExit:
		return true
	case script.ActionTitle:
		app.retitle(ctx, action.Arg)
	case script.ActionColor:
		app.scene.foreground = gg.Hex(action.Arg)
	}
	return false
}

// handleWindow applies one window event. It reports whether to exit.
func (app *Application) handleWindow(ev eventloop.WindowEvent) bool {
	app.metrics.RecordWindowEvent(ev.Kind == eventloop.CloseRequested)

	switch ev.Kind {
	case eventloop.CloseRequested:
		exit, err := app.policy.OnClose()
		if err != nil {
			// A broken hook must not leave the window unclosable.
			app.log.Warn("close hook failed", "error", err)
			return true
		}
		if !exit {
			app.log.Info("close request declined by policy")
		}
		return exit

	case eventloop.Resized:
		changed, err := app.surface.Fit()
		if err != nil {
			app.log.Warn("resize surface failed", "error", err)
			return false
		}
		if changed {
			app.renderFrame()
		}

	case eventloop.Focused:
		app.scene.focused = ev.Focused
	}
	return false
}

func (app *Application) renderFrame() {
	start := time.Now()
	if err := app.scene.draw(app.surface.Context(), start.Sub(app.started)); err != nil {
		app.metrics.RecordFailedFrame()
		app.log.Debug("draw failed", "error", err)
		return
	}
	if err := app.surface.Present(); err != nil {
		app.metrics.RecordFailedFrame()
		app.log.Debug("present failed", "error", err)
		return
	}
	app.metrics.RecordFrame(time.Since(start))
}

func (app *Application) retitle(ctx context.Context, title string) {
	if err := app.proxy.SetTitle(ctx, title); err != nil {
		app.log.Warn("set title failed", "title", title, "error", err)
		return
	}
	app.setTitle(title)
}

// applyReload takes over the app section of a reloaded config. Title
// changes arrive through the subscription in Run. The policy script is
// only read at startup.
func (app *Application) applyReload(reloadErr error, ticker *time.Ticker) {
	if reloadErr != nil {
		app.log.Warn("config reload rejected", "error", reloadErr)
		return
	}

	app.settings = app.cfg.App()
	ticker.Reset(app.settings.FrameInterval)
	app.scene.background = app.settings.Background
	app.scene.foreground = app.settings.Foreground

	app.metrics.RecordReload()
	app.log.Info("config reloaded", "frame_interval", app.settings.FrameInterval)
}

func keyRune(ev eventloop.DeviceEvent) rune {
	if ev.Key == tcell.KeyRune {
		return ev.Rune
	}
	return 0
}

func modNames(mod tcell.ModMask) []string {
	var names []string
	if mod&tcell.ModShift != 0 {
		names = append(names, "shift")
	}
	if mod&tcell.ModCtrl != 0 {
		names = append(names, "ctrl")
	}
	if mod&tcell.ModAlt != 0 {
		names = append(names, "alt")
	}
	if mod&tcell.ModMeta != 0 {
		names = append(names, "meta")
	}
	return names
}
