package eventloop

import (
	"fmt"
	"log/slog"

	"github.com/dshills/windbus/internal/logging"
)

// ClosePolicy decides what a close request does.
type ClosePolicy int

const (
	// CloseForward forwards CloseRequested to the window subscriber and
	// leaves termination to it. With no subscriber the request is dropped.
	CloseForward ClosePolicy = iota

	// CloseExitWhenUnsubscribed forwards like CloseForward, but terminates
	// the loop when no window subscriber is registered.
	CloseExitWhenUnsubscribed
)

// String returns the policy name as used in configuration.
func (p ClosePolicy) String() string {
	switch p {
	case CloseForward:
		return "forward"
	case CloseExitWhenUnsubscribed:
		return "exit-when-unsubscribed"
	default:
		return fmt.Sprintf("ClosePolicy(%d)", int(p))
	}
}

// ParseClosePolicy parses a policy name.
func ParseClosePolicy(s string) (ClosePolicy, error) {
	switch s {
	case "", "forward":
		return CloseForward, nil
	case "exit-when-unsubscribed":
		return CloseExitWhenUnsubscribed, nil
	default:
		return CloseForward, fmt.Errorf("unknown close policy %q", s)
	}
}

// Option configures a Loop.
type Option func(*loopConfig)

type loopConfig struct {
	// commandBuffer is the capacity of the command channel.
	commandBuffer int

	closePolicy ClosePolicy

	logger *slog.Logger
}

func defaultLoopConfig() loopConfig {
	return loopConfig{
		commandBuffer: 64,
		closePolicy:   CloseForward,
	}
}

// WithCommandBuffer sets the command channel capacity. Senders block while
// it is full.
func WithCommandBuffer(size int) Option {
	return func(c *loopConfig) {
		if size > 0 {
			c.commandBuffer = size
		}
	}
}

// WithClosePolicy sets the close request policy.
func WithClosePolicy(p ClosePolicy) Option {
	return func(c *loopConfig) {
		c.closePolicy = p
	}
}

// WithLogger sets the loop's logger. Defaults to logging.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(c *loopConfig) {
		c.logger = l
	}
}

func (c loopConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.Logger()
}
