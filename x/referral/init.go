package referral

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
)

// Initializer fulfils the Initializer interface to load the registry
// configuration from genesis and seed the reserved organic placeholder.
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis reads the "referral" genesis option:
//   {"referral": {"owner": "<hex address>"}}
func (Initializer) FromGenesis(opts weave.Options, db weave.KVStore) error {
	var conf struct {
		Owner weave.Address `json:"owner"`
	}
	if err := opts.ReadOptions("referral", &conf); err != nil {
		return err
	}
	if err := conf.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}

	config := Config{
		Metadata: &weave.Metadata{Schema: 1},
		Owner:    conf.Owner,
	}
	if _, err := NewConfigBucket().Put(db, configKey, &config); err != nil {
		return errors.Wrap(err, "cannot store configuration")
	}

	// The reserved placeholder representing "no affiliate". It is never
	// verified, so it can never be attributed or enabled.
	organic := Affiliate{
		Metadata: &weave.Metadata{Schema: 1},
		Name:     "organic",
	}
	if _, err := NewAffiliateBucket().Put(db, []byte(OrganicID), &organic); err != nil {
		return errors.Wrap(err, "cannot store organic placeholder")
	}
	return nil
}
