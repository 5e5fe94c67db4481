package utils

import (
	"context"
	"testing"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/store"
	"github.com/iov-one/streamdex/weavetest"
	"github.com/iov-one/streamdex/weavetest/assert"
)

// writeHandler writes the given key/value pair on every call and returns
// the configured error.
type writeHandler struct {
	key   []byte
	value []byte
	err   error
}

func (h writeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if err := db.Set(h.key, h.value); err != nil {
		return nil, err
	}
	return &weave.CheckResult{}, h.err
}

func (h writeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	if err := db.Set(h.key, h.value); err != nil {
		return nil, err
	}
	return &weave.DeliverResult{}, h.err
}

func TestSavepointRollsBackOnError(t *testing.T) {
	failing := writeHandler{
		key:   []byte("mykey"),
		value: []byte("myvalue"),
		err:   errors.Wrap(errors.ErrState, "converter broke"),
	}
	h := decorate(NewSavepoint().OnDeliver(), failing)

	db := store.MemStore()
	_, err := h.Deliver(context.Background(), db, &weavetest.Tx{})
	assert.IsErr(t, errors.ErrState, err)

	// The failed handler's write must not be visible.
	raw, gerr := db.Get([]byte("mykey"))
	assert.Nil(t, gerr)
	assert.Nil(t, raw)
}

func TestSavepointCommitsOnSuccess(t *testing.T) {
	writing := writeHandler{
		key:   []byte("mykey"),
		value: []byte("myvalue"),
	}
	h := decorate(NewSavepoint().OnDeliver(), writing)

	db := store.MemStore()
	_, err := h.Deliver(context.Background(), db, &weavetest.Tx{})
	assert.Nil(t, err)

	raw, gerr := db.Get([]byte("mykey"))
	assert.Nil(t, gerr)
	assert.Equal(t, []byte("myvalue"), raw)
}

func TestSavepointInactiveLeaksWrites(t *testing.T) {
	failing := writeHandler{
		key:   []byte("mykey"),
		value: []byte("myvalue"),
		err:   errors.Wrap(errors.ErrState, "converter broke"),
	}
	// Savepoint configured for Check only must not isolate Deliver.
	h := decorate(NewSavepoint().OnCheck(), failing)

	db := store.MemStore()
	_, err := h.Deliver(context.Background(), db, &weavetest.Tx{})
	assert.IsErr(t, errors.ErrState, err)

	raw, gerr := db.Get([]byte("mykey"))
	assert.Nil(t, gerr)
	assert.Equal(t, []byte("myvalue"), raw)
}

func TestRecoveryTurnsPanicIntoError(t *testing.T) {
	h := decorate(NewRecovery(), panicHandler{})

	db := store.MemStore()
	_, err := h.Deliver(context.Background(), db, &weavetest.Tx{})
	assert.IsErr(t, errors.ErrPanic, err)
	_, err = h.Check(context.Background(), db, &weavetest.Tx{})
	assert.IsErr(t, errors.ErrPanic, err)
}

type panicHandler struct{}

func (panicHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	panic("exploded in check")
}

func (panicHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	panic("exploded in deliver")
}

// decorate binds a single decorator to a handler.
func decorate(d weave.Decorator, h weave.Handler) weave.Handler {
	return decorated{d: d, h: h}
}

type decorated struct {
	d weave.Decorator
	h weave.Handler
}

func (x decorated) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	return x.d.Check(ctx, db, tx, x.h)
}

func (x decorated) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	return x.d.Deliver(ctx, db, tx, x.h)
}
