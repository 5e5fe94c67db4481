package cash

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
)

// Initializer fulfils the Initializer interface to load initial wallets
// from genesis.
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial account info from the genesis and save it
// to the database.
func (Initializer) FromGenesis(opts weave.Options, db weave.KVStore) error {
	accounts := []struct {
		Address weave.Address `json:"address"`
		Coins   []coin.Coin   `json:"coins"`
	}{}
	if err := opts.ReadOptions("cash", &accounts); err != nil {
		return err
	}

	bucket := NewWalletBucket()
	for i, a := range accounts {
		if err := a.Address.Validate(); err != nil {
			return errors.Wrapf(err, "account #%d address", i)
		}
		coins, err := coin.CombineCoins(a.Coins...)
		if err != nil {
			return errors.Wrapf(err, "account #%d coins", i)
		}
		wallet := Set{
			Metadata: &weave.Metadata{Schema: 1},
			Coins:    coins,
		}
		if _, err := bucket.Put(db, a.Address, &wallet); err != nil {
			return errors.Wrapf(err, "account #%d wallet", i)
		}
	}
	return nil
}
