package cash

import (
	"testing"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/store"
	"github.com/iov-one/streamdex/weavetest"
	"github.com/iov-one/streamdex/weavetest/assert"
)

func TestBalanceOfMissingWallet(t *testing.T) {
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	_, err := control.Balance(db, weavetest.NewCondition().Address())
	assert.IsErr(t, errors.ErrEmpty, err)
}

func TestIssueAndMove(t *testing.T) {
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(10, 0, "USDC")))
	assert.Nil(t, control.MoveCoins(db, alice, bob, coin.NewCoin(4, 0, "USDC")))

	aliceCoins, err := control.Balance(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(6, 0, "USDC"), aliceCoins.AmountOf("USDC"))

	bobCoins, err := control.Balance(db, bob)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(4, 0, "USDC"), bobCoins.AmountOf("USDC"))
}

func TestMoveInsufficientFunds(t *testing.T) {
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(1, 0, "USDC")))

	err := control.MoveCoins(db, alice, bob, coin.NewCoin(2, 0, "USDC"))
	assert.IsErr(t, errors.ErrAmount, err)

	// A failed move must not change the source balance.
	aliceCoins, berr := control.Balance(db, alice)
	assert.Nil(t, berr)
	assert.Equal(t, coin.NewCoin(1, 0, "USDC"), aliceCoins.AmountOf("USDC"))
}

func TestMoveFromMissingWallet(t *testing.T) {
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	err := control.MoveCoins(db,
		weavetest.NewCondition().Address(),
		weavetest.NewCondition().Address(),
		coin.NewCoin(1, 0, "USDC"))
	assert.IsErr(t, errors.ErrEmpty, err)
}

func TestBurn(t *testing.T) {
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	alice := weavetest.NewCondition().Address()
	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(5, 0, "USDC")))
	assert.Nil(t, control.CoinBurn(db, alice, coin.NewCoin(5, 0, "USDC")))

	coins, err := control.Balance(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, true, coins.IsEmpty())
}

func TestSendHandler(t *testing.T) {
	db := store.MemStore()
	bucket := NewWalletBucket()
	control := NewController(bucket)

	aliceCond := weavetest.NewCondition()
	alice := aliceCond.Address()
	bob := weavetest.NewCondition().Address()

	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(10, 0, "USDC")))

	auth := &weavetest.Auth{Signer: aliceCond}
	rt := newTestRouter(auth, control)

	tx := &weavetest.Tx{Msg: &SendMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Source:   alice,
		Dest:     bob,
		Amount:   coin.NewCoinp(3, 0, "USDC"),
	}}

	if _, err := rt.Check(nil, db, tx); err != nil {
		t.Fatalf("check failed: %+v", err)
	}
	if _, err := rt.Deliver(nil, db, tx); err != nil {
		t.Fatalf("deliver failed: %+v", err)
	}

	bobCoins, err := control.Balance(db, bob)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(3, 0, "USDC"), bobCoins.AmountOf("USDC"))

	// Without the source signature the transfer must be rejected.
	evil := &weavetest.Auth{Signer: weavetest.NewCondition()}
	rt = newTestRouter(evil, control)
	_, err = rt.Deliver(nil, db, tx)
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

// newTestRouter returns the send handler directly. Using the handler keeps
// the test focused on this package's logic.
func newTestRouter(auth *weavetest.Auth, control Controller) weave.Handler {
	return NewSendHandler(auth, control)
}
