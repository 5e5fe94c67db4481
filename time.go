package streamdex

import (
	"encoding/json"
	"time"

	"github.com/iov-one/streamdex/errors"
)

// UnixTime represents a point in time as a number of seconds since the
// epoch. This type comes in handy when dealing with the protocol, as all
// timestamps exchanged with collaborators are second precision.
type UnixTime int64

// AsUnixTime converts a time.Time into its UnixTime representation.
// Nanosecond precision is dropped.
func AsUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

// Time returns a time.Time representation of this point in time.
func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0)
}

// Add returns a point in time moved by the given duration. Duration
// precision smaller than a second is dropped.
func (t UnixTime) Add(d time.Duration) UnixTime {
	return t + UnixTime(d/time.Second)
}

// Validate returns an error if this time value is invalid.
func (t UnixTime) Validate() error {
	if t < 0 {
		return errors.Wrap(errors.ErrState, "negative time")
	}
	return nil
}

// String returns the usual date representation of this point in time.
func (t UnixTime) String() string {
	return t.Time().UTC().String()
}

func (t UnixTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(t))
}

func (t *UnixTime) UnmarshalJSON(raw []byte) error {
	// Prioritize a string datetime representation.
	var stamp string
	if err := json.Unmarshal(raw, &stamp); err == nil {
		val, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return errors.Wrap(errors.ErrInput, "invalid time format")
		}
		*t = AsUnixTime(val)
		return nil
	}

	var unix int64
	if err := json.Unmarshal(raw, &unix); err != nil {
		return errors.Wrap(err, "cannot decode json")
	}
	*t = UnixTime(unix)
	return nil
}

// UnixDuration represents a time duration with granularity of a second.
// This type should be used when dealing with the protocol, as all durations
// exchanged with collaborators are second precision.
type UnixDuration int32

// AsUnixDuration converts a time.Duration into its UnixDuration
// representation. Precision smaller than a second is dropped.
func AsUnixDuration(d time.Duration) UnixDuration {
	return UnixDuration(d / time.Second)
}

// Duration returns a time.Duration representation of this duration.
func (d UnixDuration) Duration() time.Duration {
	return time.Duration(d) * time.Second
}

// Validate returns an error if this duration value is invalid.
func (d UnixDuration) Validate() error {
	if d < 0 {
		return errors.Wrap(errors.ErrState, "negative duration")
	}
	return nil
}

func (d UnixDuration) String() string {
	return d.Duration().String()
}
