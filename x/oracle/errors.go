package oracle

import (
	"github.com/iov-one/streamdex/errors"
)

var (
	// ErrRateTolerance is returned when a reported conversion rate moved
	// further away from the last accepted rate than the configured
	// tolerance allows.
	ErrRateTolerance = errors.Register(1300, "rate outside tolerance")

	// ErrRate is returned for conversion rates that make no sense.
	ErrRate = errors.Register(1301, "invalid rate")
)
