package streamdex

import (
	"fmt"
)

// KVPair is a key-value tag attached to a delivery result. Tags are the
// deterministic observability channel of the engine; the host may index
// them for clients to subscribe to.
type KVPair struct {
	Key   []byte
	Value []byte
}

// Pair is a shortcut to create a tag from two strings.
func Pair(key, value string) KVPair {
	return KVPair{
		Key:   []byte(key),
		Value: []byte(value),
	}
}

// CheckResult captures any non-error result of a pre-flight check, to make
// sure people use error for error cases.
type CheckResult struct {
	// Data is a machine-parseable return value, like the id of a created
	// entity.
	Data []byte
	// Log is a human-readable informational string.
	Log string
	// GasAllocated is the maximum units of work we allow this tx to
	// perform.
	GasAllocated int64
}

// DeliverResult captures any non-error result of a state transition, to
// make sure people use error for error cases.
type DeliverResult struct {
	// Data is a machine-parseable return value, like the id of a created
	// entity or a marshaled receipt.
	Data []byte
	// Log is a human-readable informational string.
	Log string
	// Tags, if present, can be used by the host to index and search the
	// transaction history.
	Tags []KVPair
	// GasUsed is the amount of work performed by this transition.
	GasUsed int64
}

func (d *DeliverResult) String() string {
	return fmt.Sprintf("DeliverResult data=%X log=%q tags=%d", d.Data, d.Log, len(d.Tags))
}
