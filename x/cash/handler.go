package cash

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/x"
)

const sendTxCost int64 = 100

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, control Controller) {
	r.Handle(&SendMsg{}, NewSendHandler(auth, control))
}

// SendHandler moves coins between wallets on behalf of the source owner.
type SendHandler struct {
	auth    x.Authenticator
	control Controller
}

var _ weave.Handler = SendHandler{}

// NewSendHandler creates a handler for SendMsg.
func NewSendHandler(auth x.Authenticator, control Controller) SendHandler {
	return SendHandler{
		auth:    auth,
		control: control,
	}
}

// Check verifies the transfer is authorized without moving any coins.
func (h SendHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg SendMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source not signed")
	}
	return &weave.CheckResult{GasAllocated: sendTxCost}, nil
}

// Deliver moves the funds.
func (h SendHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg SendMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source not signed")
	}
	if err := h.control.MoveCoins(db, msg.Source, msg.Dest, *msg.Amount); err != nil {
		return nil, err
	}
	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("cash:sender", msg.Source.String()),
			weave.Pair("cash:recipient", msg.Dest.String()),
		},
	}
	return &res, nil
}
