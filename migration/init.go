package migration

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
)

// Initializer fulfils the Initializer interface to load the migration
// configuration from genesis and register the initial schema versions.
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis reads the "migration" genesis option:
//   {"migration": {"admin": "<hex address>", "packages": ["cash", ...]}}
func (Initializer) FromGenesis(opts weave.Options, db weave.KVStore) error {
	var conf struct {
		Admin    weave.Address `json:"admin"`
		Packages []string      `json:"packages"`
	}
	if err := opts.ReadOptions("migration", &conf); err != nil {
		return err
	}
	if err := conf.Admin.Validate(); err != nil {
		return errors.Wrap(err, "admin")
	}

	config := Config{
		Metadata: &weave.Metadata{Schema: 1},
		Admin:    conf.Admin,
	}
	if _, err := NewConfigBucket().Put(db, configKey, &config); err != nil {
		return errors.Wrap(err, "cannot store configuration")
	}

	MustInitPkg(db, conf.Packages...)
	return nil
}
