/*
Package market implements the settlement side of a continuous payment
exchange. Depositors stream an input asset at a per-second rate into a
market, and anyone may trigger a distribution cycle that converts the
pooled accrual into the market's output assets and pays the proceeds
out pro rata.

A market is created with an input asset, one or more output assets with
their fee rates, and operational limits. The market mirrors the state
of a host streaming transport: flow created, updated and deleted
messages commit stream changes into the engine, settling accrued input
into the market pool on every transition.

Each depositor's claim on future conversions is tracked in per-output
share pools. The depositor share is scaled down by the output fee, the
remainder accrues to the treasury, and an optional referral cut is
carved out for an enabled affiliate. Conversions happen through an
injected SwapVenue, and every quote is validated against a tolerance
band by the price guard before a swap executes. A distribution cycle is
atomic: a rejected rate aborts with no state change.

Keepers can force-close streams whose remaining balance dropped below
the market's runway buffer. When the host transport faults, the owner
jails the market, which freezes new flows and unlocks the emergency
close and drain paths.
*/
package market
