package market

import (
	"math/big"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
	"github.com/iov-one/streamdex/x"
	"github.com/iov-one/streamdex/x/cash"
	"github.com/iov-one/streamdex/x/oracle"
	"github.com/iov-one/streamdex/x/referral"
)

const (
	createMarketCost int64 = 300
	flowCost         int64 = 150
	distributeCost   int64 = 500
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, control cash.Controller, referrals referral.Controller, venue SwapVenue, guard oracle.Guard) {
	b := newBundle(auth, control, referrals, venue, guard)

	r.Handle(&CreateMarketMsg{}, &createMarketHandler{b})
	r.Handle(&UpdateMarketMsg{}, &updateMarketHandler{b})
	r.Handle(&FlowCreatedMsg{}, &flowCreatedHandler{b})
	r.Handle(&FlowUpdatedMsg{}, &flowUpdatedHandler{b})
	r.Handle(&FlowDeletedMsg{}, &flowDeletedHandler{b})
	r.Handle(&CloseStreamMsg{}, &closeStreamHandler{b})
	r.Handle(&EmergencyCloseStreamMsg{}, &emergencyCloseHandler{b})
	r.Handle(&JailMarketMsg{}, &jailHandler{b})
	r.Handle(&DistributeMsg{}, &distributeHandler{b})
	r.Handle(&UpdatePriceMsg{}, &updatePriceHandler{b})
	r.Handle(&EmergencyDrainMsg{}, &emergencyDrainHandler{b})
}

// bundle carries the collaborators shared by all handlers.
type bundle struct {
	auth      x.Authenticator
	markets   orm.ModelBucket
	streams   orm.ModelBucket
	ledger    Ledger
	control   cash.Controller
	referrals referral.Controller
	venue     SwapVenue
	guard     oracle.Guard
}

func newBundle(auth x.Authenticator, control cash.Controller, referrals referral.Controller, venue SwapVenue, guard oracle.Guard) bundle {
	return bundle{
		auth:      auth,
		markets:   NewMarketBucket(),
		streams:   NewStreamBucket(),
		ledger:    NewLedger(),
		control:   control,
		referrals: referrals,
		venue:     venue,
		guard:     guard,
	}
}

func (b bundle) loadMarket(db weave.KVStore, id []byte) (*Market, error) {
	var market Market
	if err := b.markets.One(db, id, &market); err != nil {
		return nil, errors.Wrapf(err, "market %x", id)
	}
	return &market, nil
}

func (b bundle) loadStream(db weave.KVStore, marketID []byte, depositor weave.Address) (*Stream, error) {
	var stream Stream
	if err := b.streams.One(db, streamKey(marketID, depositor), &stream); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, errors.Wrapf(ErrNotStreaming, "depositor %s", depositor)
		}
		return nil, errors.Wrap(err, "cannot load stream")
	}
	return &stream, nil
}

// eachStream calls fn for every active stream of the market.
func (b bundle) eachStream(db weave.KVStore, marketID []byte, fn func(*Stream) error) error {
	return b.streams.Iterate(db, func(key []byte, model orm.Model) error {
		if len(key) < len(marketID) || string(key[:len(marketID)]) != string(marketID) {
			return nil
		}
		return fn(model.(*Stream))
	})
}

// rateAmount converts rate * elapsed fractional units into a coin.
func rateAmount(rate int64, elapsed int64, ticker string) (coin.Coin, error) {
	if rate < 0 || elapsed < 0 {
		return coin.Coin{}, errors.Wrap(errors.ErrAmount, "negative flow interval")
	}
	total := big.NewInt(rate)
	total.Mul(total, big.NewInt(elapsed))

	var whole, frac big.Int
	whole.QuoRem(total, big.NewInt(coin.FracUnit), &frac)
	if !whole.IsInt64() || whole.Int64() > coin.MaxInt {
		return coin.Coin{}, errors.ErrOverflow
	}
	return coin.Coin{
		Ticker:     ticker,
		Whole:      whole.Int64(),
		Fractional: frac.Int64(),
	}, nil
}

// settleStream moves the input accrued since the last settlement from the
// depositor wallet into the market pool, capped by the wallet balance,
// and advances the settlement time. The caller persists the stream.
func (b bundle) settleStream(db weave.KVStore, market *Market, marketID []byte, stream *Stream, now weave.UnixTime) error {
	if now <= stream.Since {
		return nil
	}
	owed, err := rateAmount(stream.Rate, int64(now-stream.Since), market.Input)
	if err != nil {
		return errors.Wrap(err, "accrued amount")
	}
	stream.Since = now
	if owed.IsZero() {
		return nil
	}

	balance, err := b.control.Balance(db, stream.Depositor)
	switch {
	case errors.ErrEmpty.Is(err):
		return nil
	case err != nil:
		return errors.Wrap(err, "depositor balance")
	}
	available := balance.AmountOf(market.Input)
	if !available.IsPositive() {
		return nil
	}
	if !available.IsGTE(owed) {
		// The transport guarantees senders cannot go negative. Take
		// what is left.
		owed = available
	}
	return b.control.MoveCoins(db, stream.Depositor, PoolAddress(marketID), owed)
}

// splitUnits computes the three-way share cut of a scaled rate.
func splitUnits(scaled int64, feeBps int32, affiliateBps int32, attributed bool) (depositor, affiliate, treasury int64) {
	depositor = bpsCut(scaled, int64(maxFeeBps-feeBps))
	if attributed {
		affiliate = bpsCut(scaled, int64(affiliateBps))
	}
	treasury = scaled - depositor - affiliate
	return depositor, affiliate, treasury
}

// bpsCut returns floor(value * bps / 10000). The intermediate product can
// exceed int64 at high flow rates, so it is computed in big integers. The
// result never exceeds the value and always fits.
func bpsCut(value, bps int64) int64 {
	var cut big.Int
	cut.Mul(big.NewInt(value), big.NewInt(bps))
	cut.Quo(&cut, big.NewInt(maxFeeBps))
	return cut.Int64()
}

// applyShares recomputes the stream's share entries in every pool for the
// new rate and affiliate, adjusting treasury and affiliate ledger entries
// by the difference to the previous assignment. A rate of zero clears the
// stream's footprint entirely. The caller persists the stream.
func (b bundle) applyShares(db weave.KVStore, market *Market, marketID []byte, stream *Stream, rate int64, affiliate weave.Address) error {
	scaled := rate / market.ShareScaler
	attributed := len(affiliate) != 0

	oldUnits := make(map[string]PoolUnits, len(stream.Units))
	for _, u := range stream.Units {
		oldUnits[u.Tag] = u
	}

	var newUnits []PoolUnits
	apply := func(tag string, dep, aff, tre int64) error {
		pool := PoolKey(marketID, tag)
		old := oldUnits[tag]

		if err := b.ledger.SetShare(db, pool, stream.Depositor, dep); err != nil {
			return errors.Wrapf(err, "%s pool depositor share", tag)
		}

		if cur, err := b.ledger.Share(db, pool, market.Treasury); err != nil {
			return err
		} else if err := b.ledger.SetShare(db, pool, market.Treasury, cur-old.TreasuryUnits+tre); err != nil {
			return errors.Wrapf(err, "%s pool treasury share", tag)
		}

		if len(stream.Affiliate) != 0 && old.AffiliateUnits != 0 {
			if cur, err := b.ledger.Share(db, pool, stream.Affiliate); err != nil {
				return err
			} else if err := b.ledger.SetShare(db, pool, stream.Affiliate, cur-old.AffiliateUnits); err != nil {
				return errors.Wrapf(err, "%s pool old affiliate share", tag)
			}
		}
		if attributed && aff != 0 {
			if cur, err := b.ledger.Share(db, pool, affiliate); err != nil {
				return err
			} else if err := b.ledger.SetShare(db, pool, affiliate, cur+aff); err != nil {
				return errors.Wrapf(err, "%s pool affiliate share", tag)
			}
		}

		if dep != 0 || aff != 0 || tre != 0 {
			newUnits = append(newUnits, PoolUnits{
				Tag:            tag,
				DepositorUnits: dep,
				AffiliateUnits: aff,
				TreasuryUnits:  tre,
			})
		}
		delete(oldUnits, tag)
		return nil
	}

	for _, out := range market.Outputs {
		dep, aff, tre := splitUnits(scaled, out.FeeBps, market.AffiliateBps, attributed)
		if err := apply(out.Ticker, dep, aff, tre); err != nil {
			return err
		}
	}
	if market.SubsidyTicker != "" {
		// The subsidy emission carries no fee.
		if err := apply(SubsidyPool, scaled, 0, 0); err != nil {
			return err
		}
	}
	// Pools that exist in the previous assignment but not in the current
	// configuration anymore must be cleared as well.
	for tag := range oldUnits {
		if err := apply(tag, 0, 0, 0); err != nil {
			return err
		}
	}

	stream.Units = newUnits
	stream.Rate = rate
	stream.Affiliate = affiliate
	return nil
}

// requireRunway fails unless the depositor wallet can sustain the rate
// for at least the market's buffer window.
func (b bundle) requireRunway(db weave.KVStore, market *Market, depositor weave.Address, rate int64) error {
	need, err := rateAmount(rate, int64(market.MinRunway), market.Input)
	if err != nil {
		return err
	}
	balance, err := b.control.Balance(db, depositor)
	switch {
	case errors.ErrEmpty.Is(err):
		return errors.Wrapf(ErrInsufficientRunway, "no %s balance", market.Input)
	case err != nil:
		return errors.Wrap(err, "depositor balance")
	}
	if !balance.AmountOf(market.Input).IsGTE(need) {
		return errors.Wrapf(ErrInsufficientRunway, "need %s for %s", need, market.MinRunway)
	}
	return nil
}

// ------------------------------------------------------------------
// market configuration

type createMarketHandler struct {
	bundle
}

var _ weave.Handler = (*createMarketHandler)(nil)

func (h *createMarketHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: createMarketCost}, nil
}

func (h *createMarketHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	market := Market{
		Metadata:      &weave.Metadata{Schema: 1},
		Owner:         msg.Owner,
		Treasury:      msg.Treasury,
		Input:         msg.Input,
		Outputs:       msg.Outputs,
		AffiliateBps:  msg.AffiliateBps,
		SubsidyTicker: msg.SubsidyTicker,
		SubsidyRate:   msg.SubsidyRate,
		TolerancePpm:  msg.TolerancePpm,
		ShareScaler:   msg.ShareScaler,
		MinRunway:     msg.MinRunway,
	}
	id, err := h.markets.Put(db, nil, &market)
	if err != nil {
		return nil, errors.Wrap(err, "cannot store market")
	}

	res := weave.DeliverResult{
		Data: id,
		Tags: []weave.KVPair{
			weave.Pair("market:action", "create"),
		},
	}
	return &res, nil
}

func (h *createMarketHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CreateMarketMsg, error) {
	var msg CreateMarketMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Owner) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}
	return &msg, nil
}

type updateMarketHandler struct {
	bundle
}

var _ weave.Handler = (*updateMarketHandler)(nil)

func (h *updateMarketHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: createMarketCost}, nil
}

func (h *updateMarketHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, market, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if len(msg.Owner) != 0 {
		market.Owner = msg.Owner
	}
	if len(msg.Treasury) != 0 {
		market.Treasury = msg.Treasury
	}
	for _, update := range msg.Outputs {
		out, err := market.Output(update.Ticker)
		if err != nil {
			return nil, err
		}
		out.FeeBps = update.FeeBps
	}
	if msg.AffiliateBps > 0 {
		market.AffiliateBps = msg.AffiliateBps
	}
	if msg.SubsidyRate > 0 {
		market.SubsidyRate = msg.SubsidyRate
	}
	if msg.TolerancePpm > 0 {
		market.TolerancePpm = msg.TolerancePpm
	}
	if _, err := h.markets.Put(db, msg.MarketID, market); err != nil {
		return nil, errors.Wrap(err, "cannot store market")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("market:action", "update"),
		},
	}
	return &res, nil
}

func (h *updateMarketHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*UpdateMarketMsg, *Market, error) {
	var msg UpdateMarketMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, market.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}
	return &msg, market, nil
}

// ------------------------------------------------------------------
// stream lifecycle

type flowCreatedHandler struct {
	bundle
}

var _ weave.Handler = (*flowCreatedHandler)(nil)

func (h *flowCreatedHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: flowCost}, nil
}

func (h *flowCreatedHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, market, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.referrals.Reattribute(db, msg.Depositor, msg.ReferralTag); err != nil {
		return nil, errors.Wrap(err, "cannot attribute depositor")
	}
	affiliate, err := h.referrals.AffiliateAddress(db, msg.Depositor)
	if err != nil {
		return nil, err
	}

	stream := Stream{
		Metadata:  &weave.Metadata{Schema: 1},
		Depositor: msg.Depositor,
		Since:     weave.AsUnixTime(now),
	}
	if err := h.applyShares(db, market, msg.MarketID, &stream, msg.Rate, affiliate); err != nil {
		return nil, err
	}
	if _, err := h.streams.Put(db, streamKey(msg.MarketID, msg.Depositor), &stream); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("market:action", "flow_created"),
			weave.Pair("market:depositor", msg.Depositor.String()),
		},
	}
	return &res, nil
}

func (h *flowCreatedHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*FlowCreatedMsg, *Market, error) {
	var msg FlowCreatedMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, nil, err
	}
	if market.Jailed {
		return nil, nil, errors.Wrap(ErrJailed, "market is jailed")
	}
	if !h.auth.HasAddress(ctx, msg.Depositor) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature required")
	}
	if err := h.streams.Has(db, streamKey(msg.MarketID, msg.Depositor)); err == nil {
		return nil, nil, errors.Wrapf(ErrAlreadyStreaming, "depositor %s", msg.Depositor)
	} else if !errors.ErrNotFound.Is(err) {
		return nil, nil, err
	}
	if err := h.requireRunway(db, market, msg.Depositor, msg.Rate); err != nil {
		return nil, nil, err
	}
	return &msg, market, nil
}

type flowUpdatedHandler struct {
	bundle
}

var _ weave.Handler = (*flowUpdatedHandler)(nil)

func (h *flowUpdatedHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: flowCost}, nil
}

func (h *flowUpdatedHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, market, stream, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	// Settle the accrual at the old rate before the new rate applies.
	if err := h.settleStream(db, market, msg.MarketID, stream, weave.AsUnixTime(now)); err != nil {
		return nil, err
	}

	// Attribution is immutable on a rate update, but a disabled
	// affiliate loses its cut to the treasury.
	affiliate, err := h.referrals.AffiliateAddress(db, msg.Depositor)
	if err != nil {
		return nil, err
	}
	if err := h.applyShares(db, market, msg.MarketID, stream, msg.Rate, affiliate); err != nil {
		return nil, err
	}
	if _, err := h.streams.Put(db, streamKey(msg.MarketID, msg.Depositor), stream); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("market:action", "flow_updated"),
			weave.Pair("market:depositor", msg.Depositor.String()),
		},
	}
	return &res, nil
}

func (h *flowUpdatedHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*FlowUpdatedMsg, *Market, *Stream, error) {
	var msg FlowUpdatedMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, nil, nil, err
	}
	if market.Jailed {
		return nil, nil, nil, errors.Wrap(ErrJailed, "market is jailed")
	}
	if !h.auth.HasAddress(ctx, msg.Depositor) {
		return nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature required")
	}
	stream, err := h.loadStream(db, msg.MarketID, msg.Depositor)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := h.requireRunway(db, market, msg.Depositor, msg.Rate); err != nil {
		return nil, nil, nil, err
	}
	return &msg, market, stream, nil
}

type flowDeletedHandler struct {
	bundle
}

var _ weave.Handler = (*flowDeletedHandler)(nil)

func (h *flowDeletedHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg FlowDeletedMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: flowCost}, nil
}

func (h *flowDeletedHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg FlowDeletedMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Depositor) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature required")
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, err
	}
	return h.closeFlow(db, market, msg.MarketID, msg.Depositor, weave.AsUnixTime(now), true, "flow_deleted")
}

// closeFlow settles, zeroes all shares and removes the stream record.
func (b bundle) closeFlow(db weave.KVStore, market *Market, marketID []byte, depositor weave.Address, now weave.UnixTime, settle bool, action string) (*weave.DeliverResult, error) {
	stream, err := b.loadStream(db, marketID, depositor)
	if err != nil {
		return nil, err
	}
	if settle {
		if err := b.settleStream(db, market, marketID, stream, now); err != nil {
			return nil, err
		}
	}
	if err := b.applyShares(db, market, marketID, stream, 0, nil); err != nil {
		return nil, err
	}
	if err := b.streams.Delete(db, streamKey(marketID, depositor)); err != nil {
		return nil, errors.Wrap(err, "cannot delete stream")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("market:action", action),
			weave.Pair("market:depositor", depositor.String()),
		},
	}
	return &res, nil
}

type closeStreamHandler struct {
	bundle
}

var _ weave.Handler = (*closeStreamHandler)(nil)

func (h *closeStreamHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg CloseStreamMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: flowCost}, nil
}

func (h *closeStreamHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg CloseStreamMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, err
	}
	stream, err := h.loadStream(db, msg.MarketID, msg.Depositor)
	if err != nil {
		return nil, err
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	// Only an underfunded stream may be keeper-closed.
	need, err := rateAmount(stream.Rate, int64(market.MinRunway), market.Input)
	if err != nil {
		return nil, err
	}
	balance, err := h.control.Balance(db, msg.Depositor)
	if err != nil && !errors.ErrEmpty.Is(err) {
		return nil, errors.Wrap(err, "depositor balance")
	}
	if balance.AmountOf(market.Input).IsGTE(need) {
		return nil, errors.Wrapf(ErrNotClosable, "runway above %s", market.MinRunway)
	}

	return h.closeFlow(db, market, msg.MarketID, msg.Depositor, weave.AsUnixTime(now), true, "stream_closed")
}

type emergencyCloseHandler struct {
	bundle
}

var _ weave.Handler = (*emergencyCloseHandler)(nil)

func (h *emergencyCloseHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg EmergencyCloseStreamMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: flowCost}, nil
}

func (h *emergencyCloseHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg EmergencyCloseStreamMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, err
	}
	if !market.Jailed {
		return nil, errors.Wrap(ErrNotJailed, "emergency close requires a jailed market")
	}
	now, err := weave.BlockTime(ctx)
	if err != nil {
		return nil, err
	}
	// No settlement: the transport is faulted, funds stay with the
	// depositor.
	return h.closeFlow(db, market, msg.MarketID, msg.Depositor, weave.AsUnixTime(now), false, "emergency_close")
}

type jailHandler struct {
	bundle
}

var _ weave.Handler = (*jailHandler)(nil)

func (h *jailHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: flowCost}, nil
}

func (h *jailHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, market, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	market.Jailed = msg.Jailed
	if _, err := h.markets.Put(db, msg.MarketID, market); err != nil {
		return nil, errors.Wrap(err, "cannot store market")
	}

	action := "unjail"
	if msg.Jailed {
		action = "jail"
	}
	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("market:action", action),
		},
	}
	return &res, nil
}

func (h *jailHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*JailMarketMsg, *Market, error) {
	var msg JailMarketMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, market.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}
	if market.Jailed == msg.Jailed {
		if msg.Jailed {
			return nil, nil, errors.Wrap(ErrJailed, "already jailed")
		}
		return nil, nil, errors.Wrap(ErrNotJailed, "not jailed")
	}
	return &msg, market, nil
}

type emergencyDrainHandler struct {
	bundle
}

var _ weave.Handler = (*emergencyDrainHandler)(nil)

func (h *emergencyDrainHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: distributeCost}, nil
}

func (h *emergencyDrainHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, market, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// Sweep the pooled funds and the subsidy reserve.
	for _, src := range []weave.Address{PoolAddress(msg.MarketID), SubsidyAddress(msg.MarketID)} {
		balance, err := h.control.Balance(db, src)
		switch {
		case errors.ErrEmpty.Is(err):
			continue
		case err != nil:
			return nil, errors.Wrap(err, "market balance")
		}
		for _, c := range balance {
			if err := h.control.MoveCoins(db, src, msg.Dest, *c); err != nil {
				return nil, errors.Wrap(err, "cannot sweep")
			}
		}
	}

	// Zero every pool of this market.
	for _, out := range market.Outputs {
		if err := h.ledger.ZeroAll(db, PoolKey(msg.MarketID, out.Ticker)); err != nil {
			return nil, err
		}
	}
	if market.SubsidyTicker != "" {
		if err := h.ledger.ZeroAll(db, PoolKey(msg.MarketID, SubsidyPool)); err != nil {
			return nil, err
		}
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("market:action", "emergency_drain"),
		},
	}
	return &res, nil
}

func (h *emergencyDrainHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*EmergencyDrainMsg, *Market, error) {
	var msg EmergencyDrainMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	market, err := h.loadMarket(db, msg.MarketID)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, market.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}

	open := false
	err = h.eachStream(db, msg.MarketID, func(*Stream) error {
		open = true
		return orm.ErrIteratorDone
	})
	if err != nil {
		return nil, nil, err
	}
	if open {
		return nil, nil, errors.Wrap(ErrNotZeroStreamers, "cannot drain")
	}
	return &msg, market, nil
}
