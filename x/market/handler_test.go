package market

import (
	"context"
	"testing"
	"time"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/app"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/store"
	"github.com/iov-one/streamdex/weavetest"
	"github.com/iov-one/streamdex/weavetest/assert"
	"github.com/iov-one/streamdex/x/cash"
	"github.com/iov-one/streamdex/x/oracle"
	"github.com/iov-one/streamdex/x/referral"
)

// testEnv wires a complete market with a cash controller, a referral
// registry and a fixed price feed venue.
type testEnv struct {
	rt       weave.Handler
	db       weave.CacheableKVStore
	control  cash.Controller
	feed     oracle.FixedFeed
	marketID []byte
	owner    weave.Condition
	treasury weave.Address
}

// newTestEnv creates a USDC market paying out ETH with a 2% fee, a 0.2%
// affiliate cut and a 10 second runway buffer. All given signers are
// authenticated, plus the market owner.
func newTestEnv(t testing.TB, signers ...weave.Condition) *testEnv {
	t.Helper()

	db := store.MemStore()
	owner := weavetest.NewCondition()
	treasury := weavetest.NewCondition().Address()
	control := cash.NewController(cash.NewWalletBucket())
	feed := oracle.FixedFeed{
		"USDC/ETH": 2 * oracle.RateUnit,
	}

	auth := &weavetest.Auth{Signers: append(signers, owner)}
	rt := app.NewRouter()
	RegisterRoutes(rt, auth, control,
		referral.NewController(),
		NewFeedVenue(feed, control),
		oracle.NewGuard(oracle.NewPriceBucket()))

	env := &testEnv{
		rt:       rt,
		db:       db,
		control:  control,
		feed:     feed,
		owner:    owner,
		treasury: treasury,
	}

	res, err := env.deliverAt(t, 1000, &CreateMarketMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		Owner:        owner.Address(),
		Treasury:     treasury,
		Input:        "USDC",
		Outputs:      []OutputConfig{{Ticker: "ETH", FeeBps: 200}},
		AffiliateBps: 20,
		TolerancePpm: 100000,
		ShareScaler:  1,
		MinRunway:    10,
	})
	if err != nil {
		t.Fatalf("cannot create market: %+v", err)
	}
	env.marketID = res.Data
	return env
}

// deliverAt runs the message through the router with the given block time.
func (env *testEnv) deliverAt(t testing.TB, blockTime int64, msg weave.Msg) (*weave.DeliverResult, error) {
	t.Helper()
	ctx := weave.WithBlockTime(context.Background(), time.Unix(blockTime, 0))
	return env.rt.Deliver(ctx, env.db, &weavetest.Tx{Msg: msg})
}

// fund mints input coins for the address.
func (env *testEnv) fund(t testing.TB, addr weave.Address, amount coin.Coin) {
	t.Helper()
	if err := env.control.CoinMint(env.db, addr, amount); err != nil {
		t.Fatalf("cannot fund %s: %+v", addr, err)
	}
}

// balance returns the held amount of one ticker, zero for no wallet.
func (env *testEnv) balance(t testing.TB, addr weave.Address, ticker string) coin.Coin {
	t.Helper()
	coins, err := env.control.Balance(env.db, addr)
	if err != nil && !errors.ErrEmpty.Is(err) {
		t.Fatalf("cannot get balance of %s: %+v", addr, err)
	}
	return coins.AmountOf(ticker)
}

// enableAffiliate registers a verified and enabled affiliate directly in
// the referral registry.
func enableAffiliate(t testing.TB, db weave.KVStore, id string, addr weave.Address) {
	t.Helper()
	aff := referral.Affiliate{
		Metadata: &weave.Metadata{Schema: 1},
		Name:     id,
		Address:  addr,
		Verified: true,
		Enabled:  true,
	}
	if _, err := referral.NewAffiliateBucket().Put(db, []byte(id), &aff); err != nil {
		t.Fatalf("cannot register affiliate: %+v", err)
	}
}

// oneUSDCPerSecond is a flow rate of one whole input coin per second.
const oneUSDCPerSecond = coin.FracUnit

func TestCreateMarketRequiresOwnerSignature(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.deliverAt(t, 1000, &CreateMarketMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		Owner:        weavetest.NewCondition().Address(),
		Treasury:     env.treasury,
		Input:        "USDC",
		Outputs:      []OutputConfig{{Ticker: "ETH", FeeBps: 200}},
		TolerancePpm: 100000,
		ShareScaler:  1,
		MinRunway:    10,
	})
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestUpdateMarketOwnerOnly(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.deliverAt(t, 1000, &UpdateMarketMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		MarketID:     env.marketID,
		TolerancePpm: 5000,
	})
	assert.Nil(t, err)

	var market Market
	assert.Nil(t, NewMarketBucket().One(env.db, env.marketID, &market))
	assert.Equal(t, int64(5000), market.TolerancePpm)
	// Zero values keep the current configuration.
	assert.Equal(t, "USDC", market.Input)
	assert.Equal(t, int32(20), market.AffiliateBps)

	// Without the owner signature the update must be rejected.
	intruder := weavetest.NewCondition()
	rt := app.NewRouter()
	RegisterRoutes(rt, &weavetest.Auth{Signer: intruder}, env.control,
		referral.NewController(),
		NewFeedVenue(env.feed, env.control),
		oracle.NewGuard(oracle.NewPriceBucket()))
	ctx := weave.WithBlockTime(context.Background(), time.Unix(1001, 0))
	_, err = rt.Deliver(ctx, env.db, &weavetest.Tx{Msg: &UpdateMarketMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		MarketID:     env.marketID,
		TolerancePpm: 9000,
	}})
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestFlowCreate(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	var stream Stream
	assert.Nil(t, NewStreamBucket().One(env.db, streamKey(env.marketID, alice.Address()), &stream))
	assert.Equal(t, int64(oneUSDCPerSecond), stream.Rate)
	assert.Equal(t, weave.UnixTime(1000), stream.Since)

	// The organic depositor holds 98% of the ETH pool, the treasury the
	// full 2% fee.
	ledger := NewLedger()
	pool := PoolKey(env.marketID, "ETH")
	units, err := ledger.Share(env.db, pool, alice.Address())
	assert.Nil(t, err)
	assert.Equal(t, int64(980000000), units)
	units, err = ledger.Share(env.db, pool, env.treasury)
	assert.Nil(t, err)
	assert.Equal(t, int64(20000000), units)
	total, err := ledger.TotalUnits(env.db, pool)
	assert.Nil(t, err)
	assert.Equal(t, int64(coin.FracUnit), total)

	// A second create for the same depositor is rejected.
	_, err = env.deliverAt(t, 1001, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.IsErr(t, ErrAlreadyStreaming, err)
}

func TestFlowCreateRequiresRunway(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	// The buffer window is 10 seconds, so 5 USDC cannot cover a rate of
	// one per second.
	env.fund(t, alice.Address(), coin.NewCoin(5, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.IsErr(t, ErrInsufficientRunway, err)
}

func TestFlowCreateWithReferral(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	carl := weavetest.NewCondition().Address()
	enableAffiliate(t, env.db, "carl", carl)

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		MarketID:    env.marketID,
		Depositor:   alice.Address(),
		Rate:        oneUSDCPerSecond,
		ReferralTag: "carl",
	})
	assert.Nil(t, err)

	// The affiliate cut is carved out of the fee, not the depositor
	// share.
	ledger := NewLedger()
	pool := PoolKey(env.marketID, "ETH")
	units, err := ledger.Share(env.db, pool, alice.Address())
	assert.Nil(t, err)
	assert.Equal(t, int64(980000000), units)
	units, err = ledger.Share(env.db, pool, carl)
	assert.Nil(t, err)
	assert.Equal(t, int64(2000000), units)
	units, err = ledger.Share(env.db, pool, env.treasury)
	assert.Nil(t, err)
	assert.Equal(t, int64(18000000), units)
}

func TestFlowUpdateSettlesAndRecomputes(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	// 100 seconds at the old rate are settled into the pool before the
	// new rate applies.
	_, err = env.deliverAt(t, 1100, &FlowUpdatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      2 * oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	assert.Equal(t, coin.NewCoin(100, 0, "USDC"), env.balance(t, PoolAddress(env.marketID), "USDC"))
	assert.Equal(t, coin.NewCoin(900, 0, "USDC"), env.balance(t, alice.Address(), "USDC"))

	var stream Stream
	assert.Nil(t, NewStreamBucket().One(env.db, streamKey(env.marketID, alice.Address()), &stream))
	assert.Equal(t, int64(2*oneUSDCPerSecond), stream.Rate)
	assert.Equal(t, weave.UnixTime(1100), stream.Since)

	// Share units follow the doubled rate.
	ledger := NewLedger()
	pool := PoolKey(env.marketID, "ETH")
	units, err := ledger.Share(env.db, pool, alice.Address())
	assert.Nil(t, err)
	assert.Equal(t, int64(1960000000), units)
	total, err := ledger.TotalUnits(env.db, pool)
	assert.Nil(t, err)
	assert.Equal(t, int64(2*coin.FracUnit), total)
}

func TestFlowDelete(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	_, err = env.deliverAt(t, 1050, &FlowDeletedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
	})
	assert.Nil(t, err)

	// The accrual up to the delete is settled.
	assert.Equal(t, coin.NewCoin(50, 0, "USDC"), env.balance(t, PoolAddress(env.marketID), "USDC"))

	// Stream and share footprint are gone.
	assert.IsErr(t, errors.ErrNotFound,
		NewStreamBucket().Has(env.db, streamKey(env.marketID, alice.Address())))
	total, err := NewLedger().TotalUnits(env.db, PoolKey(env.marketID, "ETH"))
	assert.Nil(t, err)
	assert.Equal(t, int64(0), total)

	// Deleting again fails.
	_, err = env.deliverAt(t, 1051, &FlowDeletedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
	})
	assert.IsErr(t, ErrNotStreaming, err)
}

func TestKeeperCloseUnderfundedOnly(t *testing.T) {
	alice := weavetest.NewCondition()
	keeper := weavetest.NewCondition()
	env := newTestEnv(t, alice, keeper)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	// A funded stream cannot be keeper closed.
	_, err = env.deliverAt(t, 1001, &CloseStreamMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
	})
	assert.IsErr(t, ErrNotClosable, err)

	// Drain the wallet below the runway buffer.
	drain := weavetest.NewCondition().Address()
	assert.Nil(t, env.control.MoveCoins(env.db, alice.Address(), drain, coin.NewCoin(995, 0, "USDC")))

	_, err = env.deliverAt(t, 1002, &CloseStreamMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
	})
	assert.Nil(t, err)
	assert.IsErr(t, errors.ErrNotFound,
		NewStreamBucket().Has(env.db, streamKey(env.marketID, alice.Address())))
}

func TestEmergencyCloseRequiresJail(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	_, err = env.deliverAt(t, 1100, &EmergencyCloseStreamMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
	})
	assert.IsErr(t, ErrNotJailed, err)

	_, err = env.deliverAt(t, 1100, &JailMarketMsg{
		Metadata: &weave.Metadata{Schema: 1},
		MarketID: env.marketID,
		Jailed:   true,
	})
	assert.Nil(t, err)

	// Jailing twice is rejected.
	_, err = env.deliverAt(t, 1100, &JailMarketMsg{
		Metadata: &weave.Metadata{Schema: 1},
		MarketID: env.marketID,
		Jailed:   true,
	})
	assert.IsErr(t, ErrJailed, err)

	_, err = env.deliverAt(t, 1100, &EmergencyCloseStreamMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
	})
	assert.Nil(t, err)

	// No settlement on the emergency path, the accrual stays with the
	// depositor.
	assert.Equal(t, coin.NewCoin(1000, 0, "USDC"), env.balance(t, alice.Address(), "USDC"))
	assert.IsErr(t, errors.ErrNotFound,
		NewStreamBucket().Has(env.db, streamKey(env.marketID, alice.Address())))
}

func TestJailedMarketBlocksNewFlows(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &JailMarketMsg{
		Metadata: &weave.Metadata{Schema: 1},
		MarketID: env.marketID,
		Jailed:   true,
	})
	assert.Nil(t, err)

	_, err = env.deliverAt(t, 1001, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.IsErr(t, ErrJailed, err)
}

func TestEmergencyDrain(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	_, err := env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	dest := weavetest.NewCondition().Address()

	// Draining with an open stream is rejected.
	_, err = env.deliverAt(t, 1100, &EmergencyDrainMsg{
		Metadata: &weave.Metadata{Schema: 1},
		MarketID: env.marketID,
		Dest:     dest,
	})
	assert.IsErr(t, ErrNotZeroStreamers, err)

	_, err = env.deliverAt(t, 1100, &FlowDeletedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
	})
	assert.Nil(t, err)

	// The delete settled 100 USDC into the pool.
	assert.Equal(t, coin.NewCoin(100, 0, "USDC"), env.balance(t, PoolAddress(env.marketID), "USDC"))

	_, err = env.deliverAt(t, 1101, &EmergencyDrainMsg{
		Metadata: &weave.Metadata{Schema: 1},
		MarketID: env.marketID,
		Dest:     dest,
	})
	assert.Nil(t, err)

	assert.Equal(t, coin.NewCoin(100, 0, "USDC"), env.balance(t, dest, "USDC"))
	assert.Equal(t, true, env.balance(t, PoolAddress(env.marketID), "USDC").IsZero())
}

func TestSplitUnits(t *testing.T) {
	cases := map[string]struct {
		scaled       int64
		feeBps       int32
		affiliateBps int32
		attributed   bool
		wantDep      int64
		wantAff      int64
		wantTre      int64
	}{
		"typical rate": {
			scaled:       oneUSDCPerSecond,
			feeBps:       200,
			affiliateBps: 20,
			attributed:   true,
			wantDep:      980000000,
			wantAff:      2000000,
			wantTre:      18000000,
		},
		"high rate attributed": {
			// The raw bps product exceeds int64 here.
			scaled:       2000000000000000,
			feeBps:       200,
			affiliateBps: 20,
			attributed:   true,
			wantDep:      1960000000000000,
			wantAff:      4000000000000,
			wantTre:      36000000000000,
		},
		"high rate organic": {
			scaled:       2000000000000000,
			feeBps:       200,
			affiliateBps: 20,
			attributed:   false,
			wantDep:      1960000000000000,
			wantAff:      0,
			wantTre:      40000000000000,
		},
		"near int64 ceiling": {
			scaled:       9000000000000000000,
			feeBps:       200,
			affiliateBps: 20,
			attributed:   true,
			wantDep:      8820000000000000000,
			wantAff:      18000000000000000,
			wantTre:      162000000000000000,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dep, aff, tre := splitUnits(tc.scaled, tc.feeBps, tc.affiliateBps, tc.attributed)
			assert.Equal(t, tc.wantDep, dep)
			assert.Equal(t, tc.wantAff, aff)
			assert.Equal(t, tc.wantTre, tre)
			// The three cuts always account for the full scaled rate.
			assert.Equal(t, tc.scaled, dep+aff+tre)
		})
	}
}
