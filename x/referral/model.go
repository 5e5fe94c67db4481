package referral

import (
	"regexp"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

// OrganicID is the reserved affiliate id representing "no affiliate". It is
// seeded at genesis as a permanently disabled placeholder and can never be
// applied for, verified or attributed.
const OrganicID = "organic"

// validAffiliateID restricts affiliate ids to short, url-safe tags.
var validAffiliateID = regexp.MustCompile(`^[a-z0-9_\-]{2,32}$`).MatchString

// Affiliate is a party credited with referring depositors. It is keyed by
// its unique id tag.
type Affiliate struct {
	Metadata *weave.Metadata

	// Name is a human readable label, for display only.
	Name string

	// Address owns this affiliate account and receives the referral cut
	// of protocol fees.
	Address weave.Address

	// Verified is set once the registry owner approved the application.
	// Only a verified affiliate can be enabled, and a verified affiliate
	// cannot voluntarily withdraw anymore.
	Verified bool

	// Enabled affiliates can be attributed to new depositors.
	Enabled bool

	// ReferralCount is the cumulative number of depositors attributed to
	// this affiliate.
	ReferralCount int64
}

var _ orm.Model = (*Affiliate)(nil)

func (a *Affiliate) Validate() error {
	var err error
	if merr := a.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if a.Name == "" {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "name"))
	}
	if aerr := a.Address.Validate(); aerr != nil {
		// The reserved organic placeholder has no owner.
		if len(a.Address) != 0 {
			err = errors.Append(err, errors.Wrap(aerr, "address"))
		}
	}
	if a.Enabled && !a.Verified {
		err = errors.Append(err, errors.Wrap(errors.ErrState, "enabled but not verified"))
	}
	if a.ReferralCount < 0 {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative referral count"))
	}
	return err
}

// Attribution binds a depositor address to the affiliate credited for the
// referral. An empty AffiliateID means the depositor is organic. It is
// keyed by the depositor address.
type Attribution struct {
	Metadata *weave.Metadata

	// AffiliateID is the id of the credited affiliate, or empty for an
	// organic depositor.
	AffiliateID string
}

var _ orm.Model = (*Attribution)(nil)

func (a *Attribution) Validate() error {
	if err := a.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if a.AffiliateID != "" && !validAffiliateID(a.AffiliateID) {
		return errors.Wrapf(errors.ErrInput, "affiliate id: %q", a.AffiliateID)
	}
	return nil
}

// Config holds the registry configuration. Stored as a singleton.
type Config struct {
	Metadata *weave.Metadata

	// Owner may verify and disable affiliates.
	Owner weave.Address
}

var _ orm.Model = (*Config)(nil)

func (c *Config) Validate() error {
	var err error
	if merr := c.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if oerr := c.Owner.Validate(); oerr != nil {
		err = errors.Append(err, errors.Wrap(oerr, "owner"))
	}
	return err
}

// configKey is the fixed key of the Config singleton.
var configKey = []byte("config")

// NewAffiliateBucket creates a bucket with all affiliates, keyed by id.
func NewAffiliateBucket() orm.ModelBucket {
	return orm.NewModelBucket("aff", &Affiliate{}, cdc)
}

// NewAttributionBucket creates a bucket with all depositor attributions,
// keyed by depositor address.
func NewAttributionBucket() orm.ModelBucket {
	return orm.NewModelBucket("attrib", &Attribution{}, cdc)
}

// NewConfigBucket creates the bucket holding the Config singleton.
func NewConfigBucket() orm.ModelBucket {
	return orm.NewModelBucket("refconf", &Config{}, cdc)
}

// loadConfig returns the registry configuration.
func loadConfig(db weave.ReadOnlyKVStore, bucket orm.ModelBucket) (*Config, error) {
	var conf Config
	if err := bucket.One(db, configKey, &conf); err != nil {
		return nil, errors.Wrap(err, "cannot load configuration")
	}
	return &conf, nil
}
