package eventloop

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

// Proxy is a handle on the command bus. It carries no ownership of the
// window; it can only ask the owning thread to do things.
//
// A Proxy is safe for concurrent use. Commands sent through one Proxy are
// processed in the order they were sent; there is no ordering across
// different Proxies, including clones.
type Proxy struct {
	id       uuid.UUID
	seq      atomic.Uint64
	commands chan<- command
	done     <-chan struct{}
	wake     func()
}

func newProxy(commands chan<- command, done <-chan struct{}, wake func()) *Proxy {
	return &Proxy{
		id:       uuid.New(),
		commands: commands,
		done:     done,
		wake:     wake,
	}
}

// ID returns the handle's identity as it appears in loop logs.
func (p *Proxy) ID() uuid.UUID {
	return p.id
}

// Clone returns a new handle on the same bus with its own identity.
func (p *Proxy) Clone() *Proxy {
	return newProxy(p.commands, p.done, p.wake)
}

func (p *Proxy) header() header {
	return header{proxy: p.id, seq: p.seq.Add(1)}
}

// send enqueues cmd and wakes the loop.
func (p *Proxy) send(cmd command) error {
	select {
	case <-p.done:
		return ErrBusClosed
	default:
	}

	select {
	case p.commands <- cmd:
		p.wake()
		return nil
	case <-p.done:
		return ErrBusClosed
	}
}

// await blocks for the reply to a command already sent.
func await[T any](ctx context.Context, p *Proxy, reply <-chan result[T]) (T, error) {
	var zero T
	select {
	case r := <-reply:
		return r.val, r.err
	case <-p.done:
		// The loop may have answered just before it stopped.
		select {
		case r := <-reply:
			return r.val, r.err
		default:
			return zero, ErrBusClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// CreateWindow asks the owning thread to create the window and waits for
// the result. Only the first successful call creates a window; later calls
// return ErrWindowExists.
func (p *Proxy) CreateWindow(ctx context.Context, params WindowParams) (Size, error) {
	reply := make(chan result[Size], 1)
	if err := p.send(createWindowCmd{header: p.header(), params: params, reply: reply}); err != nil {
		return Size{}, err
	}
	return await(ctx, p, reply)
}

// CreateSurface lends instance to the owning thread, which binds a surface
// to the window. The instance is returned with the result, including on
// error. If ctx ends first the instance is not returned.
func (p *Proxy) CreateSurface(ctx context.Context, instance Instance) (Instance, Surface, error) {
	reply := make(chan result[surfaceReply], 1)
	if err := p.send(createSurfaceCmd{header: p.header(), instance: instance, reply: reply}); err != nil {
		return instance, nil, err
	}

	r, err := await(ctx, p, reply)
	if errors.Is(err, ErrBusClosed) {
		// The owning thread never took the instance.
		return instance, nil, err
	}
	return r.instance, r.surface, err
}

// QueryWindowSize returns the current window size.
func (p *Proxy) QueryWindowSize(ctx context.Context) (Size, error) {
	reply := make(chan result[Size], 1)
	if err := p.send(queryWindowSizeCmd{header: p.header(), reply: reply}); err != nil {
		return Size{}, err
	}
	return await(ctx, p, reply)
}

// SetTitle changes the window title.
func (p *Proxy) SetTitle(ctx context.Context, title string) error {
	reply := make(chan result[struct{}], 1)
	if err := p.send(setTitleCmd{header: p.header(), title: title, reply: reply}); err != nil {
		return err
	}
	_, err := await(ctx, p, reply)
	return err
}

// RegisterDeviceSubscriber replaces the device event sink. Passing nil
// unregisters. Delivery is best effort: the loop never blocks on the sink,
// so events are dropped while the sink is full.
//
// There is no acknowledgement, and events already in flight for the old
// sink may still be delivered to it. A registered sink must not be closed.
func (p *Proxy) RegisterDeviceSubscriber(sink chan<- DeviceEvent) error {
	return p.send(registerDeviceSinkCmd{header: p.header(), sink: sink})
}

// RegisterWindowSubscriber replaces the window event sink. Same delivery
// rules as RegisterDeviceSubscriber.
func (p *Proxy) RegisterWindowSubscriber(sink chan<- WindowEvent) error {
	return p.send(registerWindowSinkCmd{header: p.header(), sink: sink})
}

// Exit asks the loop to terminate once the commands sent before it have
// been processed.
func (p *Proxy) Exit() error {
	return p.send(exitCmd{header: p.header()})
}

// Done is closed once the loop has terminated.
func (p *Proxy) Done() <-chan struct{} {
	return p.done
}
