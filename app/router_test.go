package app

import (
	"context"
	"testing"

	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/store"
	"github.com/iov-one/streamdex/weavetest"
	"github.com/iov-one/streamdex/weavetest/assert"
)

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()
	h := &weavetest.Handler{}
	r.Handle(&weavetest.Msg{RoutePath: "test/good"}, h)

	db := store.MemStore()
	ctx := context.Background()

	tx := &weavetest.Tx{Msg: &weavetest.Msg{RoutePath: "test/good"}}
	_, err := r.Check(ctx, db, tx)
	assert.Nil(t, err)
	_, err = r.Deliver(ctx, db, tx)
	assert.Nil(t, err)
	assert.Equal(t, 2, h.CallCount())

	// A message without a registered handler must fail.
	tx = &weavetest.Tx{Msg: &weavetest.Msg{RoutePath: "test/missing"}}
	_, err = r.Deliver(ctx, db, tx)
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestRouterRejectsBadPath(t *testing.T) {
	r := NewRouter()
	assert.Panics(t, func() {
		r.Handle(&weavetest.Msg{RoutePath: "no-dashes-allowed"}, &weavetest.Handler{})
	})
}

func TestRouterRejectsDuplicate(t *testing.T) {
	r := NewRouter()
	r.Handle(&weavetest.Msg{RoutePath: "test/good"}, &weavetest.Handler{})
	assert.Panics(t, func() {
		r.Handle(&weavetest.Msg{RoutePath: "test/good"}, &weavetest.Handler{})
	})
}
