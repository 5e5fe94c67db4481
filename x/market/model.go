package market

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

const (
	// maxFeeBps caps the total protocol fee at 100%.
	maxFeeBps = 10000

	// SubsidyPool is the reserved pool tag of the subsidy share ledger.
	// Output pools are tagged with their output ticker.
	SubsidyPool = "subsidy"
)

// OutputConfig describes one output asset of a market.
type OutputConfig struct {
	// Ticker of the output asset.
	Ticker string

	// FeeBps is the total protocol fee in basis points, taken from the
	// depositor's gross share. The affiliate cut is carved out of this
	// fee, the rest goes to the treasury.
	FeeBps int32
}

func (c OutputConfig) Validate() error {
	var err error
	if !coin.IsCC(c.Ticker) {
		err = errors.Append(err, errors.Wrapf(errors.ErrCurrency, "output ticker: %q", c.Ticker))
	}
	if c.FeeBps < 0 || c.FeeBps > maxFeeBps {
		err = errors.Append(err, errors.Wrapf(errors.ErrAmount, "fee: %d bps", c.FeeBps))
	}
	return err
}

// Market is the configuration of one continuous-flow exchange instance.
// It is keyed by a sequence generated ID.
type Market struct {
	Metadata *weave.Metadata

	// Owner may update the configuration and run emergency paths.
	Owner weave.Address

	// Treasury receives the protocol fee share of all distributions.
	Treasury weave.Address

	// Input is the ticker of the asset depositors stream in.
	Input string

	// Outputs the pooled input is converted into on distribute.
	Outputs []OutputConfig

	// AffiliateBps is the part of a referred depositor's gross share
	// credited to the affiliate, in basis points. Must not exceed the
	// fee of any output.
	AffiliateBps int32

	// SubsidyTicker is the asset of the fixed-rate emission. Empty
	// disables the subsidy.
	SubsidyTicker string

	// SubsidyRate is the emission in fractional units per second,
	// paid from the market's pre-funded subsidy wallet.
	SubsidyRate int64

	// TolerancePpm is the price guard band in parts per million.
	TolerancePpm int64

	// ShareScaler divides a flow rate (fractional units per second)
	// into share units.
	ShareScaler int64

	// MinRunway is the buffer window every stream must stay funded
	// for. A stream whose remaining runway drops below it may be
	// keeper-closed.
	MinRunway weave.UnixDuration

	// Jailed is set when the host transport flagged this market as
	// faulted. Only emergency paths are allowed while jailed.
	Jailed bool

	// LastDistributed is the block time of the last successful
	// distribution, used to meter the subsidy emission.
	LastDistributed weave.UnixTime
}

var _ orm.Model = (*Market)(nil)

func (m *Market) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if oerr := m.Owner.Validate(); oerr != nil {
		err = errors.Append(err, errors.Wrap(oerr, "owner"))
	}
	if terr := m.Treasury.Validate(); terr != nil {
		err = errors.Append(err, errors.Wrap(terr, "treasury"))
	}
	if !coin.IsCC(m.Input) {
		err = errors.Append(err, errors.Wrapf(errors.ErrCurrency, "input ticker: %q", m.Input))
	}
	if len(m.Outputs) == 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "outputs"))
	}
	for i, out := range m.Outputs {
		if oerr := out.Validate(); oerr != nil {
			err = errors.Append(err, errors.Wrapf(oerr, "output #%d", i))
		}
		if m.AffiliateBps > out.FeeBps {
			err = errors.Append(err, errors.Wrapf(errors.ErrAmount,
				"affiliate cut %d bps exceeds output #%d fee", m.AffiliateBps, i))
		}
	}
	if m.AffiliateBps < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative affiliate cut"))
	}
	if m.SubsidyTicker != "" && !coin.IsCC(m.SubsidyTicker) {
		err = errors.Append(err, errors.Wrapf(errors.ErrCurrency, "subsidy ticker: %q", m.SubsidyTicker))
	}
	if m.SubsidyRate < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative subsidy rate"))
	}
	if m.TolerancePpm < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative tolerance"))
	}
	if m.ShareScaler < 1 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "share scaler must be at least 1"))
	}
	if derr := m.MinRunway.Validate(); derr != nil {
		err = errors.Append(err, errors.Wrap(derr, "min runway"))
	}
	return err
}

// Output returns the configuration of the given output ticker.
func (m *Market) Output(ticker string) (*OutputConfig, error) {
	for i := range m.Outputs {
		if m.Outputs[i].Ticker == ticker {
			return &m.Outputs[i], nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "no output %q", ticker)
}

// Stream is the active flow of one depositor into one market. It is keyed
// by the market ID followed by the depositor address.
type Stream struct {
	Metadata *weave.Metadata

	// Depositor is the streaming account.
	Depositor weave.Address

	// Rate is the flow in fractional units of the market input asset
	// per second.
	Rate int64

	// Since is the block time up to which the flow was settled into the
	// market pool.
	Since weave.UnixTime

	// Units assigned per pool at the last recompute. Kept so the
	// treasury and affiliate ledger entries can be adjusted by the
	// difference on update and delete.
	Units []PoolUnits

	// Affiliate is the address credited at registration time, nil for
	// organic depositors.
	Affiliate weave.Address
}

// PoolUnits is the three-way share cut of one stream in one pool.
type PoolUnits struct {
	// Tag of the pool, an output ticker or SubsidyPool.
	Tag string

	DepositorUnits int64
	AffiliateUnits int64
	TreasuryUnits  int64
}

func (u PoolUnits) Validate() error {
	var err error
	if u.Tag == "" {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "pool tag"))
	}
	if u.DepositorUnits < 0 || u.AffiliateUnits < 0 || u.TreasuryUnits < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative units"))
	}
	return err
}

var _ orm.Model = (*Stream)(nil)

func (s *Stream) Validate() error {
	var err error
	if merr := s.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if derr := s.Depositor.Validate(); derr != nil {
		err = errors.Append(err, errors.Wrap(derr, "depositor"))
	}
	if s.Rate <= 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "rate must be positive"))
	}
	for i, u := range s.Units {
		if uerr := u.Validate(); uerr != nil {
			err = errors.Append(err, errors.Wrapf(uerr, "units #%d", i))
		}
	}
	return err
}

// NewMarketBucket creates a bucket with all markets.
func NewMarketBucket() orm.ModelBucket {
	return orm.NewModelBucket("market", &Market{}, cdc)
}

// NewStreamBucket creates a bucket with all active streams.
func NewStreamBucket() orm.ModelBucket {
	return orm.NewModelBucket("stream", &Stream{}, cdc)
}

// streamKey builds the stream bucket key for a depositor in a market.
func streamKey(marketID []byte, depositor weave.Address) []byte {
	key := make([]byte, 0, len(marketID)+len(depositor))
	key = append(key, marketID...)
	return append(key, depositor...)
}

// PoolAddress derives the module account that holds a market's pooled
// input and undistributed proceeds.
func PoolAddress(marketID []byte) weave.Address {
	return weave.NewCondition("market", "pool", marketID).Address()
}

// SubsidyAddress derives the module account that holds a market's
// pre-funded subsidy balance.
func SubsidyAddress(marketID []byte) weave.Address {
	return weave.NewCondition("market", "subsidy", marketID).Address()
}
