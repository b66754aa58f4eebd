package eventloop

import "github.com/google/uuid"

// command is a request carried from a Proxy to the owning thread.
// Commands with a reply channel are answered exactly once.
type command interface {
	name() string
	origin() header
}

// header identifies the sending Proxy and the command's position in its stream.
type header struct {
	proxy uuid.UUID
	seq   uint64
}

func (h header) origin() header { return h }

// result is the payload of a one-shot reply channel.
type result[T any] struct {
	val T
	err error
}

type createWindowCmd struct {
	header
	params WindowParams
	reply  chan result[Size]
}

func (createWindowCmd) name() string { return "create-window" }

// surfaceReply hands the instance back alongside the surface.
type surfaceReply struct {
	instance Instance
	surface  Surface
}

type createSurfaceCmd struct {
	header
	instance Instance
	reply    chan result[surfaceReply]
}

func (createSurfaceCmd) name() string { return "create-surface" }

type registerDeviceSinkCmd struct {
	header
	sink chan<- DeviceEvent
}

func (registerDeviceSinkCmd) name() string { return "register-device-subscriber" }

type registerWindowSinkCmd struct {
	header
	sink chan<- WindowEvent
}

func (registerWindowSinkCmd) name() string { return "register-window-subscriber" }

type queryWindowSizeCmd struct {
	header
	reply chan result[Size]
}

func (queryWindowSizeCmd) name() string { return "query-window-size" }

type setTitleCmd struct {
	header
	title string
	reply chan result[struct{}]
}

func (setTitleCmd) name() string { return "set-title" }

type exitCmd struct {
	header
}

func (exitCmd) name() string { return "exit" }
