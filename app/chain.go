package app

import (
	weave "github.com/iov-one/streamdex"
)

// Decorators holds a chain of decorators, not yet bound to a Handler.
type Decorators struct {
	chain []weave.Decorator
}

// ChainDecorators takes a variable number of decorators and condenses them
// to be executed in series.
func ChainDecorators(chain ...weave.Decorator) Decorators {
	return Decorators{chain: chain}
}

// Chain appends more decorators to an existing chain.
func (d Decorators) Chain(chain ...weave.Decorator) Decorators {
	return Decorators{chain: append(d.chain, chain...)}
}

// WithHandler binds a handler to the end of the decorator chain and returns
// the combined handler.
func (d Decorators) WithHandler(h weave.Handler) weave.Handler {
	for i := len(d.chain) - 1; i >= 0; i-- {
		h = decoratedHandler{
			d: d.chain[i],
			h: h,
		}
	}
	return h
}

type decoratedHandler struct {
	d weave.Decorator
	h weave.Handler
}

var _ weave.Handler = decoratedHandler{}

// Check passes the handler as the next Checker of the decorator.
func (d decoratedHandler) Check(ctx weave.Context, store weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	return d.d.Check(ctx, store, tx, d.h)
}

// Deliver passes the handler as the next Deliverer of the decorator.
func (d decoratedHandler) Deliver(ctx weave.Context, store weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	return d.d.Deliver(ctx, store, tx, d.h)
}
