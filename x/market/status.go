package market

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/x/cash"
)

// DepositorStatus is a read-only snapshot of one depositor in one market.
type DepositorStatus struct {
	// Streaming is false when the depositor has no active flow. The
	// remaining fields are only populated for an active stream.
	Streaming bool

	// Rate of the active flow in input fractional units per second.
	Rate int64

	// Since is the block time the flow was last settled at.
	Since weave.UnixTime

	// Units assigned per pool.
	Units []PoolUnits

	// Pending is the depositor's cut of the undistributed pool balances,
	// one entry per output asset held by the pool account.
	Pending coin.Coins
}

// DepositorStatusOf inspects the share ledger and the pool account to
// report the live state of a depositor.
func DepositorStatusOf(db weave.KVStore, control cash.Controller, marketID []byte, depositor weave.Address) (*DepositorStatus, error) {
	var market Market
	if err := NewMarketBucket().One(db, marketID, &market); err != nil {
		return nil, errors.Wrapf(err, "market %x", marketID)
	}

	var stream Stream
	switch err := NewStreamBucket().One(db, streamKey(marketID, depositor), &stream); {
	case errors.ErrNotFound.Is(err):
		return &DepositorStatus{}, nil
	case err != nil:
		return nil, errors.Wrap(err, "cannot load stream")
	}

	status := DepositorStatus{
		Streaming: true,
		Rate:      stream.Rate,
		Since:     stream.Since,
		Units:     stream.Units,
	}

	held, err := control.Balance(db, PoolAddress(marketID))
	switch {
	case errors.ErrEmpty.Is(err):
		return &status, nil
	case err != nil:
		return nil, errors.Wrap(err, "pool balance")
	}

	ledger := NewLedger()
	for _, out := range market.Outputs {
		balance := held.AmountOf(out.Ticker)
		if balance.IsZero() {
			continue
		}
		pool := PoolKey(marketID, out.Ticker)
		units, err := ledger.Share(db, pool, depositor)
		if err != nil {
			return nil, err
		}
		total, err := ledger.TotalUnits(db, pool)
		if err != nil {
			return nil, err
		}
		if units == 0 || total == 0 {
			continue
		}
		cut, err := balance.Weighted(units, total)
		if err != nil {
			return nil, errors.Wrapf(err, "%s cut", out.Ticker)
		}
		if cut.IsZero() {
			continue
		}
		status.Pending, err = status.Pending.Add(cut)
		if err != nil {
			return nil, err
		}
	}
	return &status, nil
}
