package market

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
)

// DistributionReceipt summarizes one settlement cycle. It is returned as
// the result data of a successful distribution.
type DistributionReceipt struct {
	// Input is the pooled amount consumed by this cycle.
	Input coin.Coin

	// Payouts lists the gross proceeds per pool.
	Payouts []PoolPayout

	// Subsidy is the emission paid this cycle, zero when skipped.
	Subsidy coin.Coin
}

// PoolPayout is the proceeds converted for one pool in one cycle.
type PoolPayout struct {
	Tag   string
	Gross coin.Coin
}

type distributeHandler struct {
	bundle
}

var _ weave.Handler = (*distributeHandler)(nil)

func (h *distributeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg DistributeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: distributeCost}, nil
}

// Deliver runs one settlement cycle. The whole cycle is atomic: a failure
// anywhere, most notably a rejected conversion rate, aborts with no state
// change at all.
func (h *distributeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg DistributeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, err
	}
	if market.Jailed {
		return nil, errors.Wrap(ErrJailed, "market is jailed")
	}
	blockTime, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, err
	}
	now := weave.AsUnixTime(blockTime)

	// Pull the accrual of every active stream into the pool first, so
	// this cycle settles everything owed up to now.
	var streams []*Stream
	err = h.eachStream(db, msg.MarketID, func(s *Stream) error {
		streams = append(streams, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, s := range streams {
		if err := h.settleStream(db, market, msg.MarketID, s, now); err != nil {
			return nil, err
		}
		if _, err := h.streams.Put(db, streamKey(msg.MarketID, s.Depositor), s); err != nil {
			return nil, errors.Wrap(err, "cannot store stream")
		}
	}

	poolAddr := PoolAddress(msg.MarketID)
	pooled, err := h.pooledInput(db, poolAddr, market.Input)
	if err != nil {
		return nil, err
	}
	// Nothing pooled means nothing to convert. The cycle is a no-op and
	// the subsidy meter does not advance either.
	if pooled.IsZero() {
		return &weave.DeliverResult{
			Tags: []weave.KVPair{
				weave.Pair("market:action", "distribute"),
				weave.Pair("market:cycle", "empty"),
			},
		}, nil
	}

	receipt := DistributionReceipt{Input: pooled}

	// Split the pooled input evenly across the outputs. The division
	// remainder stays pooled and compounds into the next cycle.
	slice, _, err := pooled.Divide(int64(len(market.Outputs)))
	if err != nil {
		return nil, errors.Wrap(err, "cannot split input")
	}

	for _, out := range market.Outputs {
		gross, err := h.convertAndPay(db, market, msg.MarketID, poolAddr, slice, out.Ticker, msg.AuxData, now)
		if err != nil {
			return nil, errors.Wrapf(err, "output %s", out.Ticker)
		}
		receipt.Payouts = append(receipt.Payouts, PoolPayout{Tag: out.Ticker, Gross: gross})
	}

	subsidy, err := h.paySubsidy(db, market, msg.MarketID, now)
	if err != nil {
		return nil, err
	}
	receipt.Subsidy = subsidy

	market.LastDistributed = now
	if _, err := h.markets.Put(db, msg.MarketID, market); err != nil {
		return nil, errors.Wrap(err, "cannot store market")
	}

	data, err := receipt.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "cannot serialize receipt")
	}
	res := weave.DeliverResult{
		Data: data,
		Tags: []weave.KVPair{
			weave.Pair("market:action", "distribute"),
			weave.Pair("market:input", pooled.String()),
		},
	}
	return &res, nil
}

// pooledInput returns the market pool balance of the input asset.
func (h *distributeHandler) pooledInput(db weave.KVStore, poolAddr weave.Address, ticker string) (coin.Coin, error) {
	balance, err := h.control.Balance(db, poolAddr)
	switch {
	case errors.ErrEmpty.Is(err):
		return coin.Coin{Ticker: ticker}, nil
	case err != nil:
		return coin.Coin{}, errors.Wrap(err, "pool balance")
	}
	return balance.AmountOf(ticker), nil
}

// convertAndPay swaps one input slice into the output asset, validates the
// rate with the price guard and pays the proceeds out to the pool holders
// pro rata. Conversion dust below one unit per holder stays at the pool
// address and compounds.
func (h *distributeHandler) convertAndPay(db weave.KVStore, market *Market, marketID []byte, poolAddr weave.Address, slice coin.Coin, out string, aux []byte, now weave.UnixTime) (coin.Coin, error) {
	rate, err := h.venue.Quote(db, market.Input, out)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot quote")
	}
	pool := PoolKey(marketID, out)
	if err := h.guard.Accept(db, pool, rate, market.TolerancePpm, now); err != nil {
		return coin.Coin{}, errors.Wrap(err, "rate rejected")
	}

	proceeds, err := h.venue.Swap(db, poolAddr, slice, out, aux)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot swap")
	}
	if proceeds.IsZero() {
		return proceeds, nil
	}

	if err := h.payout(db, poolAddr, pool, proceeds); err != nil {
		return coin.Coin{}, err
	}
	return proceeds, nil
}

// payout distributes an amount held by the source address to the pool
// holders proportionally to their units, rounding down.
func (h *distributeHandler) payout(db weave.KVStore, src weave.Address, pool []byte, amount coin.Coin) error {
	total, err := h.ledger.TotalUnits(db, pool)
	if err != nil {
		return err
	}
	if total == 0 {
		// No holders, the amount stays with the source address.
		return nil
	}
	holders, err := h.ledger.Holders(db, pool)
	if err != nil {
		return err
	}
	for _, holder := range holders {
		cut, err := amount.Weighted(holder.Units, total)
		if err != nil {
			return errors.Wrapf(err, "holder %s", holder.Address)
		}
		if cut.IsZero() {
			continue
		}
		if err := h.control.MoveCoins(db, src, holder.Address, cut); err != nil {
			return errors.Wrapf(err, "cannot pay %s", holder.Address)
		}
	}
	return nil
}

// paySubsidy pays the metered emission for the elapsed interval from the
// pre-funded subsidy wallet. A wallet that cannot cover the full amount
// skips the emission for this cycle entirely.
func (h *distributeHandler) paySubsidy(db weave.KVStore, market *Market, marketID []byte, now weave.UnixTime) (coin.Coin, error) {
	none := coin.Coin{Ticker: market.SubsidyTicker}
	if market.SubsidyTicker == "" || market.SubsidyRate == 0 {
		return none, nil
	}
	// The first cycle only starts the meter.
	if market.LastDistributed == 0 || now <= market.LastDistributed {
		return none, nil
	}
	owed, err := rateAmount(market.SubsidyRate, int64(now-market.LastDistributed), market.SubsidyTicker)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "subsidy amount")
	}
	if owed.IsZero() {
		return none, nil
	}

	subsidyAddr := SubsidyAddress(marketID)
	balance, err := h.control.Balance(db, subsidyAddr)
	switch {
	case errors.ErrEmpty.Is(err):
		return none, nil
	case err != nil:
		return coin.Coin{}, errors.Wrap(err, "subsidy balance")
	}
	if !balance.AmountOf(market.SubsidyTicker).IsGTE(owed) {
		return none, nil
	}

	if err := h.payout(db, subsidyAddr, PoolKey(marketID, SubsidyPool), owed); err != nil {
		return coin.Coin{}, err
	}
	return owed, nil
}

type updatePriceHandler struct {
	bundle
}

var _ weave.Handler = (*updatePriceHandler)(nil)

func (h *updatePriceHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg UpdatePriceMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: flowCost}, nil
}

// Deliver re-reads the venue quote for one output and feeds it through the
// price guard, advancing the guard record without converting anything.
func (h *updatePriceHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg UpdatePriceMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, err
	}
	if _, err := market.Output(msg.Output); err != nil {
		return nil, err
	}
	blockTime, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	rate, err := h.venue.Quote(db, market.Input, msg.Output)
	if err != nil {
		return nil, errors.Wrap(err, "cannot quote")
	}
	pool := PoolKey(msg.MarketID, msg.Output)
	if err := h.guard.Accept(db, pool, rate, market.TolerancePpm, weave.AsUnixTime(blockTime)); err != nil {
		return nil, errors.Wrap(err, "rate rejected")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("market:action", "update_price"),
			weave.Pair("market:output", msg.Output),
		},
	}
	return &res, nil
}
