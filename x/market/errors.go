package market

import (
	"github.com/iov-one/streamdex/errors"
)

var (
	// ErrAlreadyStreaming is returned when a depositor opens a second
	// concurrent stream of the same input asset into one market.
	ErrAlreadyStreaming = errors.Register(1100, "already streaming")

	// ErrNotStreaming is returned when an operation requires an active
	// stream.
	ErrNotStreaming = errors.Register(1101, "not streaming")

	// ErrNotClosable is returned when a keeper tries to close a stream
	// that still has enough runway.
	ErrNotClosable = errors.Register(1102, "not closable")

	// ErrNotJailed is returned when an emergency path is used on a
	// market that was not flagged as faulted.
	ErrNotJailed = errors.Register(1103, "not jailed")

	// ErrJailed is returned when jailing an already jailed market or
	// when a regular operation is attempted on a jailed market.
	ErrJailed = errors.Register(1104, "jailed")

	// ErrInsufficientRunway is returned when a stream would exceed the
	// depositor's available balance within the buffer window.
	ErrInsufficientRunway = errors.Register(1105, "insufficient runway")

	// ErrNotZeroStreamers is returned when an emergency drain is
	// attempted while any depositor still has a nonzero flow.
	ErrNotZeroStreamers = errors.Register(1106, "streams still open")
)
