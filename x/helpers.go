package x

import (
	weave "github.com/iov-one/streamdex"
)

// Authenticator is an interface we can use to extract authentication info
// from the context. This should be passed into the constructor of handlers,
// so we can plug in another authentication system besides signature
// verification.
type Authenticator interface {
	// GetConditions reveals all conditions fulfilled, some may be
	// scoped to an extension.
	GetConditions(weave.Context) []weave.Condition

	// HasAddress checks if any condition matches this address.
	HasAddress(weave.Context, weave.Address) bool
}

// MultiAuth chains together many Authenticators into one.
type MultiAuth struct {
	impls []Authenticator
}

var _ Authenticator = MultiAuth{}

// ChainAuth groups together a series of Authenticators.
func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth{impls}
}

// GetConditions combines all conditions of all Authenticators.
func (m MultiAuth) GetConditions(ctx weave.Context) []weave.Condition {
	var res []weave.Condition
	for _, impl := range m.impls {
		add := impl.GetConditions(ctx)
		if len(add) > 0 {
			res = append(res, add...)
		}
	}
	// TODO: remove duplicates
	return res
}

// HasAddress returns true iff any Authenticator has this address.
func (m MultiAuth) HasAddress(ctx weave.Context, addr weave.Address) bool {
	for _, impl := range m.impls {
		if impl.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// MainSigner returns the first signed condition, or nil if none.
func MainSigner(ctx weave.Context, auth Authenticator) weave.Condition {
	signers := auth.GetConditions(ctx)
	if len(signers) == 0 {
		return nil
	}
	return signers[0]
}

// HasAllConditions returns true if all conditions are fulfilled.
func HasAllConditions(ctx weave.Context, auth Authenticator, required []weave.Condition) bool {
	return HasNConditions(ctx, auth, required, len(required))
}

// HasNConditions returns true if at least n conditions are fulfilled.
// Useful for threshold conditions (1 of 3, 3 of 5, etc...).
//
// Returns an error if n > len(requested) as that is an impossible
// condition.
func HasNConditions(ctx weave.Context, auth Authenticator, requested []weave.Condition, n int) bool {
	signers := auth.GetConditions(ctx)
	count := 0
	for _, perm := range requested {
		if hasCondition(signers, perm) {
			count++
			if count >= n {
				return true
			}
		}
	}
	return false
}

func hasCondition(signers []weave.Condition, perm weave.Condition) bool {
	for _, signer := range signers {
		if signer.Equals(perm) {
			return true
		}
	}
	return false
}
