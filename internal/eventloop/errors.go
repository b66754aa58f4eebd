package eventloop

import "errors"

// Sentinel errors for the command bus.
var (
	// ErrWindowExists is returned when a window was already created.
	ErrWindowExists = errors.New("a window was already created")

	// ErrWindowMissing is returned when a command needs a window and none exists yet.
	ErrWindowMissing = errors.New("no window has been created")

	// ErrPlatformCreationFailed matches every PlatformError.
	ErrPlatformCreationFailed = errors.New("platform creation failed")

	// ErrBusClosed is returned by Proxy methods once the loop has terminated.
	ErrBusClosed = errors.New("event loop is no longer running")

	// ErrLoopRunning is returned when Run is called on a loop that already ran.
	ErrLoopRunning = errors.New("event loop already started")

	// ErrInvalidParams is returned for window parameters the platform cannot honour.
	ErrInvalidParams = errors.New("invalid window parameters")

	// ErrNilInstance is returned when CreateSurface is given no instance.
	ErrNilInstance = errors.New("graphics instance cannot be nil")
)

// PlatformError carries an error from the window system verbatim.
type PlatformError struct {
	// Op is the operation that failed (e.g. "create window").
	Op string

	// Err is the underlying platform error.
	Err error
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + ErrPlatformCreationFailed.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// Is reports ErrPlatformCreationFailed as a match for every PlatformError.
func (e *PlatformError) Is(target error) bool {
	return target == ErrPlatformCreationFailed
}
