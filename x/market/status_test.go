package market

import (
	"testing"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/weavetest"
	"github.com/iov-one/streamdex/weavetest/assert"
)

func TestDepositorStatus(t *testing.T) {
	alice := weavetest.NewCondition()
	env := newTestEnv(t, alice)
	env.fund(t, alice.Address(), coin.NewCoin(1000, 0, "USDC"))

	status, err := DepositorStatusOf(env.db, env.control, env.marketID, alice.Address())
	assert.Nil(t, err)
	assert.Equal(t, false, status.Streaming)

	_, err = env.deliverAt(t, 1000, &FlowCreatedMsg{
		Metadata:  &weave.Metadata{Schema: 1},
		MarketID:  env.marketID,
		Depositor: alice.Address(),
		Rate:      oneUSDCPerSecond,
	})
	assert.Nil(t, err)

	status, err = DepositorStatusOf(env.db, env.control, env.marketID, alice.Address())
	assert.Nil(t, err)
	assert.Equal(t, true, status.Streaming)
	assert.Equal(t, int64(oneUSDCPerSecond), status.Rate)
	assert.Equal(t, weave.UnixTime(1000), status.Since)
	assert.Equal(t, 1, len(status.Units))
	assert.Equal(t, int64(980000000), status.Units[0].DepositorUnits)
	// Nothing was converted yet, so nothing is pending.
	assert.Equal(t, true, status.Pending.IsEmpty())
}

func TestDepositorStatusPendingPayout(t *testing.T) {
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

	// Park converted output on the pool account without a distribution,
	// as undistributed dust would.
	env.fund(t, PoolAddress(env.marketID), coin.NewCoin(100, 0, "ETH"))

	status, err := DepositorStatusOf(env.db, env.control, env.marketID, alice.Address())
	assert.Nil(t, err)
	// 98% of the parked 100 ETH is the depositor's cut.
	assert.Equal(t, coin.NewCoin(98, 0, "ETH"), status.Pending.AmountOf("ETH"))
}
