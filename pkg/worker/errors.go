package worker

import (
	stderrors "errors"

	"github.com/c360/pitwall/errors"
)

// Sentinel errors for pool lifecycle and submission.
var (
	ErrPoolNotStarted     = errors.ErrNotStarted
	ErrPoolStopped        = errors.ErrAlreadyStopped
	ErrPoolAlreadyStarted = errors.ErrAlreadyStarted
	ErrQueueFull          = errors.ErrQueueFull
	ErrStopTimeout        = errors.ErrStopTimeout
	ErrNilProcessor       = stderrors.New("worker: processor function cannot be nil")
)
