// Package eventloop is the cross-thread windowing command bus.
//
// Window systems insist that their event queue is pumped from one thread.
// Run takes over that thread (the process's main thread, locked in init)
// and hands out a Proxy; every other goroutine talks to the window only
// through Proxy methods, which turn into commands processed one at a time
// by the owning thread.
//
//	func init() { runtime.LockOSThread() }
//
//	func main() {
//	    handoff := make(chan *eventloop.Proxy)
//	    go worker(handoff)
//	    if err := eventloop.Run(platform.NewTerminal(), handoff); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
//	func worker(handoff <-chan *eventloop.Proxy) {
//	    proxy := <-handoff
//	    size, err := proxy.CreateWindow(ctx, eventloop.WindowParams{Title: "demo"})
//	    ...
//	    proxy.Exit()
//	}
//
// # Commands
//
// CreateWindow, CreateSurface, QueryWindowSize and SetTitle block until the
// owning thread has answered on a reply channel made for that call alone.
// RegisterDeviceSubscriber, RegisterWindowSubscriber and Exit are fire and
// forget. Commands from one Proxy are processed in send order.
//
// # Events
//
// Raw key and mouse input is republished to the device subscriber; close
// requests, resizes and focus changes go to the window subscriber. Sinks
// are written without blocking: with no sink, or a full one, the event is
// dropped. A close request never closes the window by itself; what it does
// is decided by the ClosePolicy.
//
// # Shutdown
//
// Only Exit stops the loop (and, under CloseExitWhenUnsubscribed, a close
// request nobody listens to). Once stopped, every Proxy method returns
// ErrBusClosed instead of blocking.
package eventloop
