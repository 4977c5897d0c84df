package dialog

import (
	"errors"
	"fmt"

	"github.com/holon-run/ltdi/pkg/protocol"
)

var (
	// ErrEnvironment means the worker cannot show dialogs here, for example
	// because there is no display or terminal.
	ErrEnvironment = protocol.ErrMissingDependency
	// ErrInvalidArgument means the call was rejected before any window was
	// shown: conflicting offsets or input arrays of different lengths.
	ErrInvalidArgument = protocol.ErrInvalidArgument
	// ErrWorkerCrash means the worker did not produce a usable reply.
	ErrWorkerCrash = errors.New("dialog worker crashed")
)

// Failure is a failure reported by the worker. It unwraps to ErrEnvironment
// or ErrInvalidArgument when its kind has one of those meanings.
type Failure = protocol.Error

func crashed(err error) error {
	return fmt.Errorf("%w: %w", ErrWorkerCrash, err)
}
