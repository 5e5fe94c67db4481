package migration

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

func TestCurrentSchema(t *testing.T) {
	db := store.MemStore()
	b := NewSchemaBucket()

	_, err := b.CurrentSchema(db, "mypkg")
	assert.IsErr(t, errors.ErrNotFound, err)

	MustInitPkg(db, "mypkg")
	ver, err := b.CurrentSchema(db, "mypkg")
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), ver)

	// Duplicated initializations are ignored.
	MustInitPkg(db, "mypkg")
	ver, err = b.CurrentSchema(db, "mypkg")
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), ver)
}

func TestDeclareSequential(t *testing.T) {
	db := store.MemStore()
	b := NewSchemaBucket()
	MustInitPkg(db, "mypkg")

	// Skipping a version is rejected.
	err := b.Declare(db, &Schema{
		Metadata: &weave.Metadata{Schema: 1},
		Pkg:      "mypkg",
		Version:  3,
	})
	assert.IsErr(t, errors.ErrDuplicate, err)

	assert.Nil(t, b.Declare(db, &Schema{
		Metadata: &weave.Metadata{Schema: 1},
		Pkg:      "mypkg",
		Version:  2,
	}))
	ver, err := b.CurrentSchema(db, "mypkg")
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), ver)

	// An uninitialized package must start with version one.
	err = b.Declare(db, &Schema{
		Metadata: &weave.Metadata{Schema: 1},
		Pkg:      "otherpkg",
		Version:  2,
	})
	assert.IsErr(t, ErrSchema, err)
}

func TestUpgradeSchemaHandler(t *testing.T) {
	db := store.MemStore()
	admin := weavetest.NewCondition()

	genesis := weave.Options{
		"migration": json.RawMessage(`{
			"admin": "` + admin.Address().String() + `",
			"packages": ["cash", "market"]
		}`),
	}
	var ini Initializer
	if err := ini.FromGenesis(genesis, db); err != nil {
		t.Fatalf("cannot initialize genesis: %+v", err)
	}

	rt := app.NewRouter()
	RegisterRoutes(rt, &weavetest.Auth{Signer: admin})

	_, err := rt.Deliver(nil, db, &weavetest.Tx{Msg: &UpgradeSchemaMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Pkg:      "market",
	}})
	assert.Nil(t, err)

	ver, err := NewSchemaBucket().CurrentSchema(db, "market")
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), ver)

	// Other packages are untouched.
	ver, err = NewSchemaBucket().CurrentSchema(db, "cash")
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), ver)

	// Only the admin may upgrade.
	evil := app.NewRouter()
	RegisterRoutes(evil, &weavetest.Auth{Signer: weavetest.NewCondition()})
	_, err = evil.Deliver(nil, db, &weavetest.Tx{Msg: &UpgradeSchemaMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Pkg:      "market",
	}})
	assert.IsErr(t, errors.ErrUnauthorized, err)
}
