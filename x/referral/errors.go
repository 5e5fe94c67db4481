package referral

import (
	"github.com/iov-one/streamdex/errors"
)

var (
	// ErrAlreadyApplied is returned when an address applies for a second
	// affiliate account.
	ErrAlreadyApplied = errors.Register(1200, "already applied")

	// ErrIDTaken is returned when the requested affiliate id is in use.
	ErrIDTaken = errors.Register(1201, "affiliate id taken")

	// ErrNotActive is returned when an operation requires an enabled
	// affiliate.
	ErrNotActive = errors.Register(1202, "affiliate not active")

	// ErrAlreadyVerified is returned when verifying an affiliate twice.
	ErrAlreadyVerified = errors.Register(1203, "already verified")

	// ErrAlreadyReferred is returned when attributing a user that is
	// already attributed to an affiliate.
	ErrAlreadyReferred = errors.Register(1204, "user already referred")

	// ErrAlreadyOrganic is returned when attributing a user that was
	// already registered as organic.
	ErrAlreadyOrganic = errors.Register(1205, "user already organic")
)
