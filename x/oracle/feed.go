package oracle

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
)

// PriceFeed reports the current conversion rate between two assets. The
// rate uses the same fixed-point representation as PriceRecord.Rate.
type PriceFeed interface {
	// CurrentRate returns how many output fractional units a RateUnit of
	// input fractional units buys right now.
	CurrentRate(db weave.ReadOnlyKVStore, in string, out string) (int64, error)
}

// FixedFeed is a PriceFeed always reporting the configured rates. Useful
// for tests and as a genesis-configured fallback.
type FixedFeed map[string]int64

var _ PriceFeed = (FixedFeed)(nil)

// CurrentRate returns the rate configured for the "<in>/<out>" pair.
func (f FixedFeed) CurrentRate(db weave.ReadOnlyKVStore, in string, out string) (int64, error) {
	rate, ok := f[in+"/"+out]
	if !ok {
		return 0, errors.Wrapf(errors.ErrNotFound, "no feed for %s/%s", in, out)
	}
	return rate, nil
}
