package weavetest

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	weave "github.com/iov-one/streamdex"
)

// NewCondition returns a mocked condition with a random payload.
func NewCondition() weave.Condition {
	data := make([]byte, 20)
	if _, err := rand.Read(data); err != nil {
		panic(fmt.Sprintf("cannot read random data: %+v", err))
	}
	return weave.NewCondition("test", "random", data)
}

// SequenceID returns the serialized format of a sequence counter value.
// This is a helper to compare keys assigned by an ID generating bucket.
func SequenceID(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// Tx is a mock implementing weave.Tx interface.
type Tx struct {
	// Msg is the message that this transaction is carrying.
	Msg weave.Msg
}

var _ weave.Tx = (*Tx)(nil)

func (tx *Tx) GetMsg() (weave.Msg, error) {
	return tx.Msg, nil
}

func (tx *Tx) Marshal() ([]byte, error) {
	return tx.Msg.Marshal()
}

func (tx *Tx) Unmarshal(raw []byte) error {
	return tx.Msg.Unmarshal(raw)
}

// Msg is a mock implementing weave.Msg interface.
type Msg struct {
	// Serialized represents the serialized form of this message.
	Serialized []byte

	// Err is returned by any method call that can return an error.
	Err error

	// RoutePath is returned by the Path method.
	RoutePath string
}

var _ weave.Msg = (*Msg)(nil)

func (m *Msg) Marshal() ([]byte, error) {
	return m.Serialized, m.Err
}

func (m *Msg) Unmarshal(raw []byte) error {
	m.Serialized = raw
	return m.Err
}

func (m *Msg) Path() string {
	return m.RoutePath
}

func (m *Msg) Validate() error {
	return m.Err
}

// Handler implements weave.Handler and keeps track of the call counts.
type Handler struct {
	// CheckResult is returned by the Check method.
	CheckResult weave.CheckResult

	// DeliverResult is returned by the Deliver method.
	DeliverResult weave.DeliverResult

	// CheckErr is returned by the Check method.
	CheckErr error

	// DeliverErr is returned by the Deliver method.
	DeliverErr error

	checkCallCount   int
	deliverCallCount int
}

var _ weave.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	h.checkCallCount++
	return &h.CheckResult, h.CheckErr
}

func (h *Handler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	h.deliverCallCount++
	return &h.DeliverResult, h.DeliverErr
}

func (h *Handler) CheckCallCount() int {
	return h.checkCallCount
}

func (h *Handler) DeliverCallCount() int {
	return h.deliverCallCount
}

func (h *Handler) CallCount() int {
	return h.checkCallCount + h.deliverCallCount
}
