package referral

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
	"github.com/iov-one/streamdex/x"
)

const (
	applyCost  int64 = 100
	updateCost int64 = 50
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator) {
	affiliates := NewAffiliateBucket()
	config := NewConfigBucket()

	r.Handle(&ApplyMsg{}, &applyHandler{auth: auth, affiliates: affiliates})
	r.Handle(&VerifyMsg{}, &verifyHandler{auth: auth, affiliates: affiliates, config: config})
	r.Handle(&DisableMsg{}, &disableHandler{auth: auth, affiliates: affiliates, config: config})
	r.Handle(&ChangeAddressMsg{}, &changeAddressHandler{auth: auth, affiliates: affiliates})
	r.Handle(&WithdrawMsg{}, &withdrawHandler{auth: auth, affiliates: affiliates})
}

// applyHandler creates unverified affiliate accounts.
type applyHandler struct {
	auth       x.Authenticator
	affiliates orm.ModelBucket
}

var _ weave.Handler = (*applyHandler)(nil)

func (h *applyHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: applyCost}, nil
}

func (h *applyHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, applicant, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	aff := Affiliate{
		Metadata: &weave.Metadata{Schema: 1},
		Name:     msg.Name,
		Address:  applicant.Address(),
	}
	if _, err := h.affiliates.Put(db, []byte(msg.ID), &aff); err != nil {
		return nil, errors.Wrap(err, "cannot store affiliate")
	}

	res := weave.DeliverResult{
		Data: []byte(msg.ID),
		Tags: []weave.KVPair{
			weave.Pair("referral:action", "apply"),
			weave.Pair("referral:id", msg.ID),
		},
	}
	return &res, nil
}

func (h *applyHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ApplyMsg, weave.Condition, error) {
	var msg ApplyMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}

	applicant := x.MainSigner(ctx, h.auth)
	if applicant == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}

	if err := h.affiliates.Has(db, []byte(msg.ID)); err == nil {
		return nil, nil, errors.Wrapf(ErrIDTaken, "id %q", msg.ID)
	} else if !errors.ErrNotFound.Is(err) {
		return nil, nil, err
	}

	// One affiliate account per owning address.
	applied := false
	err := h.affiliates.Iterate(db, func(key []byte, model orm.Model) error {
		if model.(*Affiliate).Address.Equals(applicant.Address()) {
			applied = true
			return orm.ErrIteratorDone
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if applied {
		return nil, nil, errors.Wrapf(ErrAlreadyApplied, "address %s", applicant.Address())
	}
	return &msg, applicant, nil
}

// verifyHandler approves applications. Registry owner only.
type verifyHandler struct {
	auth       x.Authenticator
	affiliates orm.ModelBucket
	config     orm.ModelBucket
}

var _ weave.Handler = (*verifyHandler)(nil)

func (h *verifyHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: updateCost}, nil
}

func (h *verifyHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, aff, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	aff.Verified = true
	aff.Enabled = true
	if _, err := h.affiliates.Put(db, []byte(msg.ID), aff); err != nil {
		return nil, errors.Wrap(err, "cannot store affiliate")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("referral:action", "verify"),
			weave.Pair("referral:id", msg.ID),
		},
	}
	return &res, nil
}

func (h *verifyHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*VerifyMsg, *Affiliate, error) {
	var msg VerifyMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}

	conf, err := loadConfig(db, h.config)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, conf.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}

	var aff Affiliate
	if err := h.affiliates.One(db, []byte(msg.ID), &aff); err != nil {
		return nil, nil, errors.Wrapf(err, "affiliate %q", msg.ID)
	}
	if aff.Verified {
		return nil, nil, errors.Wrapf(ErrAlreadyVerified, "affiliate %q", msg.ID)
	}
	return &msg, &aff, nil
}

// disableHandler deactivates affiliates. Registry owner only.
type disableHandler struct {
	auth       x.Authenticator
	affiliates orm.ModelBucket
	config     orm.ModelBucket
}

var _ weave.Handler = (*disableHandler)(nil)

func (h *disableHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: updateCost}, nil
}

func (h *disableHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, aff, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	aff.Enabled = false
	if _, err := h.affiliates.Put(db, []byte(msg.ID), aff); err != nil {
		return nil, errors.Wrap(err, "cannot store affiliate")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("referral:action", "disable"),
			weave.Pair("referral:id", msg.ID),
		},
	}
	return &res, nil
}

func (h *disableHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*DisableMsg, *Affiliate, error) {
	var msg DisableMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}

	conf, err := loadConfig(db, h.config)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, conf.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}

	var aff Affiliate
	if err := h.affiliates.One(db, []byte(msg.ID), &aff); err != nil {
		return nil, nil, errors.Wrapf(err, "affiliate %q", msg.ID)
	}
	if !aff.Enabled {
		return nil, nil, errors.Wrapf(ErrNotActive, "affiliate %q", msg.ID)
	}
	return &msg, &aff, nil
}

// changeAddressHandler rotates the owning address of an affiliate. Signed
// by the current owning address.
type changeAddressHandler struct {
	auth       x.Authenticator
	affiliates orm.ModelBucket
}

var _ weave.Handler = (*changeAddressHandler)(nil)

func (h *changeAddressHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: updateCost}, nil
}

func (h *changeAddressHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, aff, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	aff.Address = msg.NewAddress
	if _, err := h.affiliates.Put(db, []byte(msg.ID), aff); err != nil {
		return nil, errors.Wrap(err, "cannot store affiliate")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("referral:action", "change_address"),
			weave.Pair("referral:id", msg.ID),
		},
	}
	return &res, nil
}

func (h *changeAddressHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ChangeAddressMsg, *Affiliate, error) {
	var msg ChangeAddressMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}

	var aff Affiliate
	if err := h.affiliates.One(db, []byte(msg.ID), &aff); err != nil {
		return nil, nil, errors.Wrapf(err, "affiliate %q", msg.ID)
	}
	if !h.auth.HasAddress(ctx, aff.Address) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "affiliate owner signature required")
	}
	return &msg, &aff, nil
}

// withdrawHandler removes an unverified application. Signed by the owning
// address.
type withdrawHandler struct {
	auth       x.Authenticator
	affiliates orm.ModelBucket
}

var _ weave.Handler = (*withdrawHandler)(nil)

func (h *withdrawHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: updateCost}, nil
}

func (h *withdrawHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if err := h.affiliates.Delete(db, []byte(msg.ID)); err != nil {
		return nil, errors.Wrap(err, "cannot delete affiliate")
	}

	res := weave.DeliverResult{
		Tags: []weave.KVPair{
			weave.Pair("referral:action", "withdraw"),
			weave.Pair("referral:id", msg.ID),
		},
	}
	return &res, nil
}

func (h *withdrawHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*WithdrawMsg, error) {
	var msg WithdrawMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}

	var aff Affiliate
	if err := h.affiliates.One(db, []byte(msg.ID), &aff); err != nil {
		return nil, errors.Wrapf(err, "affiliate %q", msg.ID)
	}
	if !h.auth.HasAddress(ctx, aff.Address) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "affiliate owner signature required")
	}
	if aff.Verified {
		return nil, errors.Wrapf(ErrAlreadyVerified, "affiliate %q cannot withdraw", msg.ID)
	}
	return &msg, nil
}
