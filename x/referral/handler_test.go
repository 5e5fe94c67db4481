package referral

import (
	"encoding/json"
	"testing"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/app"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/store"
	"github.com/iov-one/streamdex/weavetest"
	"github.com/iov-one/streamdex/weavetest/assert"
)

func newTestEnv(t testing.TB, signers ...weave.Condition) (weave.Handler, weave.KVStore, weave.Condition) {
	t.Helper()

	db := store.MemStore()
	owner := weavetest.NewCondition()

	genesis := weave.Options{
		"referral": json.RawMessage(`{"owner": "` + owner.Address().String() + `"}`),
	}
	var ini Initializer
	if err := ini.FromGenesis(genesis, db); err != nil {
		t.Fatalf("cannot initialize genesis: %+v", err)
	}

	auth := &weavetest.Auth{Signers: signers}
	rt := app.NewRouter()
	RegisterRoutes(rt, auth)
	return rt, db, owner
}

func deliver(t testing.TB, rt weave.Handler, db weave.KVStore, msg weave.Msg) error {
	t.Helper()
	_, err := rt.Deliver(nil, db, &weavetest.Tx{Msg: msg})
	return err
}

func TestApplyAndVerify(t *testing.T) {
	applicant := weavetest.NewCondition()
	owner := weavetest.NewCondition()
	rt, db, _ := newTestEnvWithOwner(t, owner, applicant)

	err := deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl",
	})
	assert.Nil(t, err)

	var aff Affiliate
	assert.Nil(t, NewAffiliateBucket().One(db, []byte("carl"), &aff))
	assert.Equal(t, false, aff.Verified)
	assert.Equal(t, false, aff.Enabled)

	// Verification requires the registry owner signature. The applicant
	// signs first in this auth setup, so verification must come from the
	// owner condition registered at genesis.
	err = deliver(t, rt, db, &VerifyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	})
	assert.Nil(t, err)

	assert.Nil(t, NewAffiliateBucket().One(db, []byte("carl"), &aff))
	assert.Equal(t, true, aff.Verified)
	assert.Equal(t, true, aff.Enabled)

	// Double verification is rejected.
	err = deliver(t, rt, db, &VerifyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	})
	assert.IsErr(t, ErrAlreadyVerified, err)
}

// newTestEnvWithOwner seeds genesis with the given owner condition and
// authenticates all given signers.
func newTestEnvWithOwner(t testing.TB, owner weave.Condition, signers ...weave.Condition) (weave.Handler, weave.KVStore, weave.Condition) {
	t.Helper()

	db := store.MemStore()
	genesis := weave.Options{
		"referral": json.RawMessage(`{"owner": "` + owner.Address().String() + `"}`),
	}
	var ini Initializer
	if err := ini.FromGenesis(genesis, db); err != nil {
		t.Fatalf("cannot initialize genesis: %+v", err)
	}

	auth := &weavetest.Auth{Signers: append(signers, owner)}
	rt := app.NewRouter()
	RegisterRoutes(rt, auth)
	return rt, db, owner
}

func TestApplyRejectsDuplicates(t *testing.T) {
	applicant := weavetest.NewCondition()
	rt, db, _ := newTestEnv(t, applicant)

	err := deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl",
	})
	assert.Nil(t, err)

	// Same id cannot be taken again.
	err = deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl the second",
	})
	assert.IsErr(t, ErrIDTaken, err)

	// Same address cannot apply under another id.
	err = deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl2",
		Name:     "Carl again",
	})
	assert.IsErr(t, ErrAlreadyApplied, err)
}

func TestApplyRejectsReservedID(t *testing.T) {
	applicant := weavetest.NewCondition()
	rt, db, _ := newTestEnv(t, applicant)

	err := deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       OrganicID,
		Name:     "Sneaky",
	})
	assert.IsErr(t, errors.ErrInput, err)
}

func TestVerifyRequiresOwner(t *testing.T) {
	applicant := weavetest.NewCondition()
	rt, db, _ := newTestEnv(t, applicant)

	err := deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl",
	})
	assert.Nil(t, err)

	// The applicant is not the registry owner.
	err = deliver(t, rt, db, &VerifyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	})
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestDisable(t *testing.T) {
	applicant := weavetest.NewCondition()
	owner := weavetest.NewCondition()
	rt, db, _ := newTestEnvWithOwner(t, owner, applicant)

	assert.Nil(t, deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl",
	}))
	assert.Nil(t, deliver(t, rt, db, &VerifyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	}))
	assert.Nil(t, deliver(t, rt, db, &DisableMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	}))

	var aff Affiliate
	assert.Nil(t, NewAffiliateBucket().One(db, []byte("carl"), &aff))
	assert.Equal(t, false, aff.Enabled)
	// Verification survives disabling.
	assert.Equal(t, true, aff.Verified)

	// Disabling twice is rejected.
	err := deliver(t, rt, db, &DisableMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	})
	assert.IsErr(t, ErrNotActive, err)
}

func TestChangeAddress(t *testing.T) {
	applicant := weavetest.NewCondition()
	rt, db, _ := newTestEnv(t, applicant)

	assert.Nil(t, deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl",
	}))

	next := weavetest.NewCondition().Address()
	assert.Nil(t, deliver(t, rt, db, &ChangeAddressMsg{
		Metadata:   &weave.Metadata{Schema: 1},
		ID:         "carl",
		NewAddress: next,
	}))

	var aff Affiliate
	assert.Nil(t, NewAffiliateBucket().One(db, []byte("carl"), &aff))
	assert.Equal(t, next, aff.Address)

	// The old owner signature no longer authorizes changes.
	err := deliver(t, rt, db, &ChangeAddressMsg{
		Metadata:   &weave.Metadata{Schema: 1},
		ID:         "carl",
		NewAddress: weavetest.NewCondition().Address(),
	})
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestWithdraw(t *testing.T) {
	applicant := weavetest.NewCondition()
	owner := weavetest.NewCondition()
	rt, db, _ := newTestEnvWithOwner(t, owner, applicant)

	assert.Nil(t, deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl",
	}))
	assert.Nil(t, deliver(t, rt, db, &WithdrawMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	}))
	assert.IsErr(t, errors.ErrNotFound, NewAffiliateBucket().Has(db, []byte("carl")))

	// A verified affiliate cannot withdraw anymore.
	assert.Nil(t, deliver(t, rt, db, &ApplyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
		Name:     "Carl",
	}))
	assert.Nil(t, deliver(t, rt, db, &VerifyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	}))
	err := deliver(t, rt, db, &WithdrawMsg{
		Metadata: &weave.Metadata{Schema: 1},
		ID:       "carl",
	})
	assert.IsErr(t, ErrAlreadyVerified, err)
}
