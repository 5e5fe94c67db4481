package oracle

import (
	"testing"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/store"
	"github.com/iov-one/streamdex/weavetest/assert"
)

func TestGuardFirstRateSeeds(t *testing.T) {
	db := store.MemStore()
	g := NewGuard(NewPriceBucket())
	market := []byte("m1")

	// Even a tolerance of zero accepts the very first report.
	assert.Nil(t, g.Accept(db, market, 5000, 0, 100))

	rec, err := g.Last(db, market)
	assert.Nil(t, err)
	assert.Equal(t, int64(5000), rec.Rate)
	assert.Equal(t, weave.UnixTime(100), rec.UpdatedAt)
}

func TestGuardTolerance(t *testing.T) {
	cases := map[string]struct {
		previous  int64
		reported  int64
		tolerance int64
		wantErr   *errors.Error
	}{
		"exact match": {
			previous: 1000000, reported: 1000000, tolerance: 0,
		},
		"within tolerance up": {
			// 1% move with 1% (10000 ppm) tolerance.
			previous: 1000000, reported: 1010000, tolerance: 10000,
		},
		"within tolerance down": {
			previous: 1000000, reported: 990000, tolerance: 10000,
		},
		"boundary is inclusive": {
			previous: 1000000, reported: 1010000, tolerance: 10000,
		},
		"outside tolerance": {
			previous: 1000000, reported: 1010001, tolerance: 10000,
			wantErr: ErrRateTolerance,
		},
		"crash rejected": {
			previous: 1000000, reported: 500000, tolerance: 10000,
			wantErr: ErrRateTolerance,
		},
		"zero rate rejected": {
			previous: 1000000, reported: 0, tolerance: 10000,
			wantErr: ErrRate,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			g := NewGuard(NewPriceBucket())
			market := []byte("m1")

			assert.Nil(t, g.Accept(db, market, tc.previous, 0, 100))

			err := g.Accept(db, market, tc.reported, tc.tolerance, 200)
			if tc.wantErr == nil {
				assert.Nil(t, err)
				rec, lerr := g.Last(db, market)
				assert.Nil(t, lerr)
				assert.Equal(t, tc.reported, rec.Rate)
				return
			}
			assert.IsErr(t, tc.wantErr, err)

			// A rejected report must not modify the record.
			rec, lerr := g.Last(db, market)
			assert.Nil(t, lerr)
			assert.Equal(t, tc.previous, rec.Rate)
			assert.Equal(t, weave.UnixTime(100), rec.UpdatedAt)
		})
	}
}

func TestGuardPerMarketIsolation(t *testing.T) {
	db := store.MemStore()
	g := NewGuard(NewPriceBucket())

	assert.Nil(t, g.Accept(db, []byte("m1"), 1000000, 0, 100))

	// A fresh market is not constrained by another market's history.
	assert.Nil(t, g.Accept(db, []byte("m2"), 5, 0, 100))
}

func TestFixedFeed(t *testing.T) {
	feed := FixedFeed{"STRM/USDC": 2 * RateUnit}

	rate, err := feed.CurrentRate(nil, "STRM", "USDC")
	assert.Nil(t, err)
	assert.Equal(t, 2*RateUnit, rate)

	_, err = feed.CurrentRate(nil, "USDC", "STRM")
	assert.IsErr(t, errors.ErrNotFound, err)
}
