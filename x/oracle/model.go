package oracle

import (
	amino "github.com/tendermint/go-amino"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

var cdc = amino.NewCodec()

// PriceRecord remembers the last accepted conversion rate for a market.
// It is keyed by the market ID.
type PriceRecord struct {
	Metadata *weave.Metadata

	// Rate is the amount of output fractional units received per RateUnit
	// of input fractional units during the last accepted conversion.
	Rate int64

	// UpdatedAt is the block time of the last accepted conversion.
	UpdatedAt weave.UnixTime
}

// RateUnit is the input quanta denominator of a Rate value. A Rate of
// RateUnit means a 1:1 conversion.
const RateUnit int64 = 1000000000

var _ orm.Model = (*PriceRecord)(nil)

func (p *PriceRecord) Validate() error {
	var err error
	if merr := p.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if p.Rate <= 0 {
		err = errors.Append(err, errors.Wrap(ErrRate, "rate must be positive"))
	}
	if terr := p.UpdatedAt.Validate(); terr != nil {
		err = errors.Append(err, errors.Wrap(terr, "updated at"))
	}
	return err
}

// NewPriceBucket creates a bucket holding the last accepted rate per
// market.
func NewPriceBucket() orm.ModelBucket {
	return orm.NewModelBucket("prices", &PriceRecord{}, cdc)
}
