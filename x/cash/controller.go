package cash

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

// Controller is the functionality needed by other extensions to move funds
// around. This can be implemented by dispatching messages, but in practice
// all extensions in this repository call the controller directly.
type Controller interface {
	// Balance returns the coin set owned by this address. Missing
	// wallets are reported as ErrEmpty.
	Balance(db weave.KVStore, src weave.Address) (coin.Coins, error)

	// MoveCoins transfers the amount between the two wallets.
	MoveCoins(db weave.KVStore, src weave.Address, dest weave.Address, amount coin.Coin) error

	// CoinMint increases the balance of the wallet out of thin air.
	CoinMint(db weave.KVStore, dest weave.Address, amount coin.Coin) error

	// CoinBurn decreases the balance of the wallet, destroying the
	// coins.
	CoinBurn(db weave.KVStore, src weave.Address, amount coin.Coin) error
}

// BaseController implements the Controller interface on top of a wallet
// bucket.
type BaseController struct {
	bucket orm.ModelBucket
}

var _ Controller = BaseController{}

// NewController returns a base controller implementation.
func NewController(bucket orm.ModelBucket) BaseController {
	return BaseController{bucket: bucket}
}

// Balance returns the coins stored in the wallet. Returns ErrEmpty for a
// wallet that was never written to.
func (c BaseController) Balance(db weave.KVStore, src weave.Address) (coin.Coins, error) {
	var wallet Set
	if err := c.bucket.One(db, src, &wallet); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, errors.Wrapf(errors.ErrEmpty, "no wallet for %s", src)
		}
		return nil, errors.Wrap(err, "cannot load wallet")
	}
	return wallet.Coins, nil
}

// MoveCoins moves the given amount from src to dest. If the src doesn't
// exist or doesn't have sufficient coins, it fails.
func (c BaseController) MoveCoins(db weave.KVStore, src weave.Address, dest weave.Address, amount coin.Coin) error {
	if amount.IsZero() {
		return nil
	}
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive transfer: %s", amount)
	}
	if err := c.CoinBurn(db, src, amount); err != nil {
		return err
	}
	return c.CoinMint(db, dest, amount)
}

// CoinMint adds the given amount to the wallet, creating it if needed.
func (c BaseController) CoinMint(db weave.KVStore, dest weave.Address, amount coin.Coin) error {
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive issue: %s", amount)
	}

	wallet := Set{Metadata: &weave.Metadata{Schema: 1}}
	err := c.bucket.One(db, dest, &wallet)
	switch {
	case err == nil, errors.ErrNotFound.Is(err):
		// Fresh wallets start empty.
	default:
		return errors.Wrap(err, "cannot load wallet")
	}

	coins, err := wallet.Coins.Add(amount)
	if err != nil {
		return err
	}
	wallet.Coins = coins
	_, err = c.bucket.Put(db, dest, &wallet)
	return err
}

// CoinBurn removes the given amount from the wallet. Fails on insufficient
// funds.
func (c BaseController) CoinBurn(db weave.KVStore, src weave.Address, amount coin.Coin) error {
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive burn: %s", amount)
	}

	var wallet Set
	if err := c.bucket.One(db, src, &wallet); err != nil {
		if errors.ErrNotFound.Is(err) {
			return errors.Wrapf(errors.ErrEmpty, "no wallet for %s", src)
		}
		return errors.Wrap(err, "cannot load wallet")
	}

	coins, err := wallet.Coins.Subtract(amount)
	if err != nil {
		return err
	}
	wallet.Coins = coins
	_, err = c.bucket.Put(db, src, &wallet)
	return err
}
