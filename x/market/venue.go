package market

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/x/cash"
	"github.com/iov-one/streamdex/x/oracle"
)

// SwapVenue converts pooled input into an output asset. The distribution
// engine quotes first, validates the quote with the price guard, and only
// then executes the swap. Implementations must convert at exactly the
// quoted rate or fail.
type SwapVenue interface {
	// Quote returns the conversion rate in output fractional units per
	// oracle.RateUnit input fractional units.
	Quote(db weave.ReadOnlyKVStore, in string, out string) (int64, error)

	// Swap converts the amount held by the address into the output
	// asset at the current rate. Returns the proceeds, which must be
	// credited to the same address. Aux is an opaque routing payload
	// that venues may ignore.
	Swap(db weave.KVStore, addr weave.Address, amount coin.Coin, out string, aux []byte) (coin.Coin, error)
}

// FeedVenue executes swaps against a price feed: the held input is burned
// and output at the feed rate is minted through the cash controller. It
// stands in for an external swap venue collaborator.
type FeedVenue struct {
	feed    oracle.PriceFeed
	control cash.Controller
}

var _ SwapVenue = FeedVenue{}

// NewFeedVenue creates a venue converting at price feed rates.
func NewFeedVenue(feed oracle.PriceFeed, control cash.Controller) FeedVenue {
	return FeedVenue{
		feed:    feed,
		control: control,
	}
}

// Quote returns the feed rate for the asset pair.
func (v FeedVenue) Quote(db weave.ReadOnlyKVStore, in string, out string) (int64, error) {
	return v.feed.CurrentRate(db, in, out)
}

// Swap burns the input amount and mints the proceeds at the quoted rate.
// The aux payload is ignored, the feed needs no routing hints.
func (v FeedVenue) Swap(db weave.KVStore, addr weave.Address, amount coin.Coin, out string, aux []byte) (coin.Coin, error) {
	rate, err := v.feed.CurrentRate(db, amount.Ticker, out)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot quote")
	}

	proceeds, err := convert(amount, out, rate)
	if err != nil {
		return coin.Coin{}, err
	}

	if err := v.control.CoinBurn(db, addr, amount); err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot take input")
	}
	if proceeds.IsZero() {
		return proceeds, nil
	}
	if err := v.control.CoinMint(db, addr, proceeds); err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot credit proceeds")
	}
	return proceeds, nil
}

// convert applies a fixed-point rate to a coin amount, producing the
// output coin. Truncates towards zero.
func convert(amount coin.Coin, out string, rate int64) (coin.Coin, error) {
	if rate <= 0 {
		return coin.Coin{}, errors.Wrapf(oracle.ErrRate, "rate: %d", rate)
	}
	// Weighted computes floor(value * rate / RateUnit) which is exactly
	// the fixed-point conversion.
	res, err := coin.Coin{
		Ticker:     out,
		Whole:      amount.Whole,
		Fractional: amount.Fractional,
	}.Weighted(rate, oracle.RateUnit)
	if err != nil {
		return coin.Coin{}, err
	}
	return res, nil
}
