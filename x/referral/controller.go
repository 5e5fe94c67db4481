package referral

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

// Controller exposes the attribution operations other extensions need. The
// stream lifecycle handler attributes depositors through this interface
// and the distribution engine resolves the fee recipient.
type Controller struct {
	affiliates orm.ModelBucket
	users      orm.ModelBucket
}

// NewController returns a referral controller over the standard buckets.
func NewController() Controller {
	return Controller{
		affiliates: NewAffiliateBucket(),
		users:      NewAttributionBucket(),
	}
}

// RegisterReferred attributes the user to the given affiliate. The
// affiliate must be enabled and the user must have no prior attribution.
func (c Controller) RegisterReferred(db weave.KVStore, user weave.Address, id string) error {
	var existing Attribution
	switch err := c.users.One(db, user, &existing); {
	case err == nil:
		if existing.AffiliateID == "" {
			return errors.Wrapf(ErrAlreadyOrganic, "user %s", user)
		}
		return errors.Wrapf(ErrAlreadyReferred, "user %s to %q", user, existing.AffiliateID)
	case errors.ErrNotFound.Is(err):
		// No attribution yet, proceed.
	default:
		return errors.Wrap(err, "cannot load attribution")
	}

	var aff Affiliate
	if err := c.affiliates.One(db, []byte(id), &aff); err != nil {
		if errors.ErrNotFound.Is(err) {
			return errors.Wrapf(ErrNotActive, "affiliate %q", id)
		}
		return errors.Wrap(err, "cannot load affiliate")
	}
	if !aff.Enabled {
		return errors.Wrapf(ErrNotActive, "affiliate %q", id)
	}

	attr := Attribution{
		Metadata:    &weave.Metadata{Schema: 1},
		AffiliateID: id,
	}
	if _, err := c.users.Put(db, user, &attr); err != nil {
		return errors.Wrap(err, "cannot store attribution")
	}

	aff.ReferralCount++
	if _, err := c.affiliates.Put(db, []byte(id), &aff); err != nil {
		return errors.Wrap(err, "cannot update referral count")
	}
	return nil
}

// RegisterOrganic attributes the user as organic. Calling it for a user
// that already is organic is a no-op. Fails for a referred user.
func (c Controller) RegisterOrganic(db weave.KVStore, user weave.Address) error {
	var existing Attribution
	switch err := c.users.One(db, user, &existing); {
	case err == nil:
		if existing.AffiliateID != "" {
			return errors.Wrapf(ErrAlreadyReferred, "user %s to %q", user, existing.AffiliateID)
		}
		return nil
	case errors.ErrNotFound.Is(err):
		// No attribution yet, proceed.
	default:
		return errors.Wrap(err, "cannot load attribution")
	}

	attr := Attribution{
		Metadata: &weave.Metadata{Schema: 1},
	}
	_, err := c.users.Put(db, user, &attr)
	return err
}

// SafeRegister is the best effort attribution used by the stream
// lifecycle. If the user already has an attribution it is kept. Otherwise
// the user becomes referred when id resolves to an enabled affiliate and
// organic in every other case. This call never fails on bad input, only
// on storage errors.
func (c Controller) SafeRegister(db weave.KVStore, user weave.Address, id string) error {
	err := c.RegisterReferred(db, user, id)
	switch {
	case err == nil:
		return nil
	case ErrAlreadyOrganic.Is(err), ErrAlreadyReferred.Is(err):
		// Prior attribution wins, even over a now-valid id.
		return nil
	case ErrNotActive.Is(err):
		return c.RegisterOrganic(db, user)
	default:
		return err
	}
}

// AffiliateAddress resolves the address credited for referring this user.
// Returns nil for organic, unregistered or disabled-affiliate users, so
// the caller can treat nil as "no referral cut".
func (c Controller) AffiliateAddress(db weave.KVStore, user weave.Address) (weave.Address, error) {
	var attr Attribution
	if err := c.users.One(db, user, &attr); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "cannot load attribution")
	}
	if attr.AffiliateID == "" {
		return nil, nil
	}

	var aff Affiliate
	if err := c.affiliates.One(db, []byte(attr.AffiliateID), &aff); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "cannot load affiliate")
	}
	if !aff.Enabled {
		return nil, nil
	}
	return aff.Address, nil
}

// AttributedID returns the affiliate id the user is attributed to, or an
// empty string for organic and unregistered users.
func (c Controller) AttributedID(db weave.KVStore, user weave.Address) (string, error) {
	var attr Attribution
	if err := c.users.One(db, user, &attr); err != nil {
		if errors.ErrNotFound.Is(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "cannot load attribution")
	}
	return attr.AffiliateID, nil
}

// Reattribute is the attribution path used when a new flow is created.
// Unlike SafeRegister, a tag resolving to an enabled affiliate replaces
// any previous attribution, so a depositor that deleted their flow can be
// re-tagged to a different affiliate on the next create. A tag that does
// not resolve falls back to SafeRegister semantics: existing attribution
// is kept, otherwise the user becomes organic. Referral counters are
// historical and never decremented.
func (c Controller) Reattribute(db weave.KVStore, user weave.Address, id string) error {
	var aff Affiliate
	active := false
	if id != "" {
		switch err := c.affiliates.One(db, []byte(id), &aff); {
		case err == nil:
			active = aff.Enabled
		case errors.ErrNotFound.Is(err):
			// Unknown tag, fall back below.
		default:
			return errors.Wrap(err, "cannot load affiliate")
		}
	}
	if !active {
		return c.SafeRegister(db, user, id)
	}

	var existing Attribution
	switch err := c.users.One(db, user, &existing); {
	case err == nil:
		if existing.AffiliateID == id {
			return nil
		}
	case errors.ErrNotFound.Is(err):
		// No attribution yet.
	default:
		return errors.Wrap(err, "cannot load attribution")
	}

	attr := Attribution{
		Metadata:    &weave.Metadata{Schema: 1},
		AffiliateID: id,
	}
	if _, err := c.users.Put(db, user, &attr); err != nil {
		return errors.Wrap(err, "cannot store attribution")
	}
	aff.ReferralCount++
	if _, err := c.affiliates.Put(db, []byte(id), &aff); err != nil {
		return errors.Wrap(err, "cannot update referral count")
	}
	return nil
}
