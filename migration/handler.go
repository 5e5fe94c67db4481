package migration

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
	"github.com/iov-one/streamdex/x"
)

const upgradeCost int64 = 100

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator) {
	r.Handle(&UpgradeSchemaMsg{}, &upgradeSchemaHandler{
		auth:   auth,
		bucket: NewSchemaBucket(),
		conf:   NewConfigBucket(),
	})
}

type upgradeSchemaHandler struct {
	auth   x.Authenticator
	bucket *SchemaBucket
	conf   orm.ModelBucket
}

var _ weave.Handler = (*upgradeSchemaHandler)(nil)

func (h *upgradeSchemaHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: upgradeCost}, nil
}

func (h *upgradeSchemaHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	cur, err := h.bucket.CurrentSchema(db, msg.Pkg)
	if err != nil && !errors.ErrNotFound.Is(err) {
		return nil, errors.Wrap(err, "current schema version")
	}

	next := Schema{
		Metadata: &weave.Metadata{Schema: 1},
		Pkg:      msg.Pkg,
		Version:  cur + 1,
	}
	if err := h.bucket.Declare(db, &next); err != nil {
		return nil, errors.Wrap(err, "cannot declare schema")
	}

	res := weave.DeliverResult{
		Data: schemaID(next.Pkg, next.Version),
		Tags: []weave.KVPair{
			weave.Pair("migration:pkg", next.Pkg),
		},
	}
	return &res, nil
}

func (h *upgradeSchemaHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*UpgradeSchemaMsg, error) {
	var msg UpgradeSchemaMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	var conf Config
	if err := h.conf.One(db, configKey, &conf); err != nil {
		return nil, errors.Wrap(err, "cannot load configuration")
	}
	if !h.auth.HasAddress(ctx, conf.Admin) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "admin signature required")
	}
	return &msg, nil
}
