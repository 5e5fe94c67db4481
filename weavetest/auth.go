package weavetest

import (
	"context"

	weave "github.com/iov-one/streamdex"
)

// Auth is a mock implementing x.Authenticator interface.
type Auth struct {
	// Signer is returned by GetConditions and for HasAddress test.
	Signer weave.Condition

	// Signers are returned as GetConditions result (together with
	// Signer if set).
	Signers []weave.Condition
}

func (a *Auth) GetConditions(weave.Context) []weave.Condition {
	if a.Signer != nil {
		return append(a.Signers, a.Signer)
	}
	return a.Signers
}

func (a *Auth) HasAddress(ctx weave.Context, addr weave.Address) bool {
	for _, s := range a.Signers {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return a.Signer != nil && addr.Equals(a.Signer.Address())
}

// CtxAuth is an Authenticator implementation that reads conditions from
// the context. Useful for handlers that are to be triggered by other
// handlers instead of an external transaction.
type CtxAuth struct {
	// Key used to set and read conditions from the context.
	Key string
}

type ctxAuthKey struct{ key string }

// SetConditions stores the conditions in the context.
func (a *CtxAuth) SetConditions(ctx weave.Context, perms ...weave.Condition) weave.Context {
	return context.WithValue(ctx, ctxAuthKey{a.Key}, perms)
}

func (a *CtxAuth) GetConditions(ctx weave.Context) []weave.Condition {
	val := ctx.Value(ctxAuthKey{a.Key})
	if val == nil {
		return nil
	}
	return val.([]weave.Condition)
}

func (a *CtxAuth) HasAddress(ctx weave.Context, addr weave.Address) bool {
	for _, perm := range a.GetConditions(ctx) {
		if addr.Equals(perm.Address()) {
			return true
		}
	}
	return false
}
