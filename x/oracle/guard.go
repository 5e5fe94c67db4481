package oracle

import (
	"math/big"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

// Guard validates conversion rates against the last accepted rate before a
// swap result may be applied. The first rate reported for a market is
// always accepted and seeds the record.
type Guard struct {
	bucket orm.ModelBucket
}

// NewGuard returns a rate guard using the given price bucket.
func NewGuard(bucket orm.ModelBucket) Guard {
	return Guard{bucket: bucket}
}

// Accept validates the reported rate against the stored record using the
// given tolerance in parts per million. On success the record is updated
// to the reported rate. On failure the stored record is left untouched and
// ErrRateTolerance is returned.
//
// A tolerance of 0 requires an exact match with the previous rate.
func (g Guard) Accept(db weave.KVStore, marketID []byte, rate int64, tolerancePpm int64, now weave.UnixTime) error {
	if rate <= 0 {
		return errors.Wrapf(ErrRate, "reported rate: %d", rate)
	}
	if tolerancePpm < 0 {
		return errors.Wrapf(ErrRate, "negative tolerance: %d", tolerancePpm)
	}

	var rec PriceRecord
	switch err := g.bucket.One(db, marketID, &rec); {
	case errors.ErrNotFound.Is(err):
		// No history yet, the first report seeds the guard.
	case err != nil:
		return errors.Wrap(err, "cannot load price record")
	default:
		if !withinTolerance(rec.Rate, rate, tolerancePpm) {
			return errors.Wrapf(ErrRateTolerance,
				"rate %d deviates from %d by more than %d ppm",
				rate, rec.Rate, tolerancePpm)
		}
	}

	rec = PriceRecord{
		Metadata:  &weave.Metadata{Schema: 1},
		Rate:      rate,
		UpdatedAt: now,
	}
	_, err := g.bucket.Put(db, marketID, &rec)
	return err
}

// Last returns the last accepted rate for the market, or ErrNotFound when
// no conversion was accepted yet.
func (g Guard) Last(db weave.ReadOnlyKVStore, marketID []byte) (*PriceRecord, error) {
	var rec PriceRecord
	if err := g.bucket.One(db, marketID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// withinTolerance returns true if |reported-previous| * 1e6 is not greater
// than previous * tolerancePpm. Computed with big integers so extreme
// rates cannot overflow.
func withinTolerance(previous, reported, tolerancePpm int64) bool {
	diff := big.NewInt(previous - reported)
	diff.Abs(diff)
	diff.Mul(diff, big.NewInt(1000000))

	limit := big.NewInt(previous)
	limit.Mul(limit, big.NewInt(tolerancePpm))

	return diff.Cmp(limit) <= 0
}
