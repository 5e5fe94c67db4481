package market

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
)

// CreateMarketMsg deploys a new market instance.
type CreateMarketMsg struct {
	Metadata      *weave.Metadata
	Owner         weave.Address
	Treasury      weave.Address
	Input         string
	Outputs       []OutputConfig
	AffiliateBps  int32
	SubsidyTicker string
	SubsidyRate   int64
	TolerancePpm  int64
	ShareScaler   int64
	MinRunway     weave.UnixDuration
}

var _ weave.Msg = (*CreateMarketMsg)(nil)

func (CreateMarketMsg) Path() string {
	return "market/create"
}

func (m CreateMarketMsg) Validate() error {
	market := Market{
		Metadata:      m.Metadata,
		Owner:         m.Owner,
		Treasury:      m.Treasury,
		Input:         m.Input,
		Outputs:       m.Outputs,
		AffiliateBps:  m.AffiliateBps,
		SubsidyTicker: m.SubsidyTicker,
		SubsidyRate:   m.SubsidyRate,
		TolerancePpm:  m.TolerancePpm,
		ShareScaler:   m.ShareScaler,
		MinRunway:     m.MinRunway,
	}
	return market.Validate()
}

// UpdateMarketMsg mutates the configuration of an existing market. Only
// the owner may deliver it. Zero values mean "keep the current setting",
// except for Outputs fee updates which are matched by ticker.
type UpdateMarketMsg struct {
	Metadata     *weave.Metadata
	MarketID     []byte
	Owner        weave.Address
	Treasury     weave.Address
	Outputs      []OutputConfig
	AffiliateBps int32
	SubsidyRate  int64
	TolerancePpm int64
}

var _ weave.Msg = (*UpdateMarketMsg)(nil)

func (UpdateMarketMsg) Path() string {
	return "market/update"
}

func (m UpdateMarketMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if len(m.MarketID) == 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "market id"))
	}
	for i, out := range m.Outputs {
		if oerr := out.Validate(); oerr != nil {
			err = errors.Append(err, errors.Wrapf(oerr, "output #%d", i))
		}
	}
	if m.AffiliateBps < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative affiliate cut"))
	}
	if m.SubsidyRate < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative subsidy rate"))
	}
	if m.TolerancePpm < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative tolerance"))
	}
	return err
}

// FlowCreatedMsg commits a new stream into a market. Sent by the
// streaming transport after the depositor opened a flow. ReferralTag
// optionally carries an affiliate id.
type FlowCreatedMsg struct {
	Metadata    *weave.Metadata
	MarketID    []byte
	Depositor   weave.Address
	Rate        int64
	ReferralTag string
}

var _ weave.Msg = (*FlowCreatedMsg)(nil)

func (FlowCreatedMsg) Path() string {
	return "market/flow_created"
}

func (m FlowCreatedMsg) Validate() error {
	return validateFlow(m.Metadata, m.MarketID, m.Depositor, m.Rate)
}

// FlowUpdatedMsg commits a rate change of an active stream.
type FlowUpdatedMsg struct {
	Metadata  *weave.Metadata
	MarketID  []byte
	Depositor weave.Address
	Rate      int64
}

var _ weave.Msg = (*FlowUpdatedMsg)(nil)

func (FlowUpdatedMsg) Path() string {
	return "market/flow_updated"
}

func (m FlowUpdatedMsg) Validate() error {
	return validateFlow(m.Metadata, m.MarketID, m.Depositor, m.Rate)
}

// FlowDeletedMsg commits the termination of an active stream.
type FlowDeletedMsg struct {
	Metadata  *weave.Metadata
	MarketID  []byte
	Depositor weave.Address
}

var _ weave.Msg = (*FlowDeletedMsg)(nil)

func (FlowDeletedMsg) Path() string {
	return "market/flow_deleted"
}

func (m FlowDeletedMsg) Validate() error {
	return validateFlow(m.Metadata, m.MarketID, m.Depositor, 1)
}

// CloseStreamMsg is the keeper path to force-close an underfunded stream.
// Callable by anyone, but only succeeds when the remaining runway is
// below the market's buffer window.
type CloseStreamMsg struct {
	Metadata  *weave.Metadata
	MarketID  []byte
	Depositor weave.Address
}

var _ weave.Msg = (*CloseStreamMsg)(nil)

func (CloseStreamMsg) Path() string {
	return "market/close_stream"
}

func (m CloseStreamMsg) Validate() error {
	return validateFlow(m.Metadata, m.MarketID, m.Depositor, 1)
}

// EmergencyCloseStreamMsg force-closes a stream while the market is
// jailed, without the transport's closing handshake.
type EmergencyCloseStreamMsg struct {
	Metadata  *weave.Metadata
	MarketID  []byte
	Depositor weave.Address
}

var _ weave.Msg = (*EmergencyCloseStreamMsg)(nil)

func (EmergencyCloseStreamMsg) Path() string {
	return "market/emergency_close_stream"
}

func (m EmergencyCloseStreamMsg) Validate() error {
	return validateFlow(m.Metadata, m.MarketID, m.Depositor, 1)
}

// JailMarketMsg flags or unflags the market as faulted. Owner only. This
// mirrors the host transport's fault signal into the engine state.
type JailMarketMsg struct {
	Metadata *weave.Metadata
	MarketID []byte
	Jailed   bool
}

var _ weave.Msg = (*JailMarketMsg)(nil)

func (JailMarketMsg) Path() string {
	return "market/jail"
}

func (m JailMarketMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if len(m.MarketID) == 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "market id"))
	}
	return err
}

// DistributeMsg runs a settlement cycle. Callable by anyone, typically an
// automated keeper. AuxData is an opaque payload forwarded to the swap
// venue, for venues that need routing hints.
type DistributeMsg struct {
	Metadata *weave.Metadata
	MarketID []byte
	AuxData  []byte
}

var _ weave.Msg = (*DistributeMsg)(nil)

func (DistributeMsg) Path() string {
	return "market/distribute"
}

func (m DistributeMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if len(m.MarketID) == 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "market id"))
	}
	return err
}

// UpdatePriceMsg re-reads the venue quote for one output and runs the
// price guard without distributing. Callable by anyone.
type UpdatePriceMsg struct {
	Metadata *weave.Metadata
	MarketID []byte
	Output   string
}

var _ weave.Msg = (*UpdatePriceMsg)(nil)

func (UpdatePriceMsg) Path() string {
	return "market/update_price"
}

func (m UpdatePriceMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if len(m.MarketID) == 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "market id"))
	}
	if m.Output == "" {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "output"))
	}
	return err
}

// EmergencyDrainMsg sweeps all market held balances to the destination
// and zeroes every share pool. Owner only, and only when no stream is
// open.
type EmergencyDrainMsg struct {
	Metadata *weave.Metadata
	MarketID []byte
	Dest     weave.Address
}

var _ weave.Msg = (*EmergencyDrainMsg)(nil)

func (EmergencyDrainMsg) Path() string {
	return "market/emergency_drain"
}

func (m EmergencyDrainMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if len(m.MarketID) == 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "market id"))
	}
	if derr := m.Dest.Validate(); derr != nil {
		err = errors.Append(err, errors.Wrap(derr, "destination"))
	}
	return err
}

func validateFlow(meta *weave.Metadata, marketID []byte, depositor weave.Address, rate int64) error {
	var err error
	if merr := meta.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if len(marketID) == 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "market id"))
	}
	if derr := depositor.Validate(); derr != nil {
		err = errors.Append(err, errors.Wrap(derr, "depositor"))
	}
	if rate <= 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "rate must be positive"))
	}
	return err
}
