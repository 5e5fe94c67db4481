package cash

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

// Set is the value stored for every wallet. Wallets are keyed by the owner
// address.
type Set struct {
	Metadata *weave.Metadata
	Coins    coin.Coins
}

var _ orm.Model = (*Set)(nil)

// Validate requires a valid metadata and a normalized coin set.
func (s *Set) Validate() error {
	if err := s.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	return s.Coins.Validate()
}

// NewWalletBucket creates a bucket with all wallets.
func NewWalletBucket() orm.ModelBucket {
	return orm.NewModelBucket("cash", &Set{}, cdc)
}
