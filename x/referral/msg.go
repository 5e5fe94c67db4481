package referral

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
)

// ApplyMsg creates a new, unverified affiliate account.
type ApplyMsg struct {
	Metadata *weave.Metadata

	// ID is the unique tag depositors will reference.
	ID string

	// Name is a human readable label.
	Name string
}

var _ weave.Msg = (*ApplyMsg)(nil)

func (ApplyMsg) Path() string {
	return "referral/apply"
}

func (m ApplyMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	err = errors.Append(err, validateID(m.ID))
	if m.Name == "" {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "name"))
	}
	return err
}

// VerifyMsg approves an affiliate application. Registry owner only.
type VerifyMsg struct {
	Metadata *weave.Metadata
	ID       string
}

var _ weave.Msg = (*VerifyMsg)(nil)

func (VerifyMsg) Path() string {
	return "referral/verify"
}

func (m VerifyMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	return validateID(m.ID)
}

// DisableMsg deactivates an affiliate. Registry owner only. Attribution of
// previously referred depositors is kept, but the affiliate no longer
// receives a fee cut and cannot be attributed to new depositors.
type DisableMsg struct {
	Metadata *weave.Metadata
	ID       string
}

var _ weave.Msg = (*DisableMsg)(nil)

func (DisableMsg) Path() string {
	return "referral/disable"
}

func (m DisableMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	return validateID(m.ID)
}

// ChangeAddressMsg updates the owning address of an affiliate. Must be
// signed by the current owning address.
type ChangeAddressMsg struct {
	Metadata   *weave.Metadata
	ID         string
	NewAddress weave.Address
}

var _ weave.Msg = (*ChangeAddressMsg)(nil)

func (ChangeAddressMsg) Path() string {
	return "referral/change_address"
}

func (m ChangeAddressMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	err = errors.Append(err, validateID(m.ID))
	if aerr := m.NewAddress.Validate(); aerr != nil {
		err = errors.Append(err, errors.Wrap(aerr, "new address"))
	}
	return err
}

// WithdrawMsg removes an affiliate application. Must be signed by the
// owning address and is only allowed while the application was not
// verified yet.
type WithdrawMsg struct {
	Metadata *weave.Metadata
	ID       string
}

var _ weave.Msg = (*WithdrawMsg)(nil)

func (WithdrawMsg) Path() string {
	return "referral/withdraw"
}

func (m WithdrawMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	return validateID(m.ID)
}

func validateID(id string) error {
	if id == OrganicID {
		return errors.Wrapf(errors.ErrInput, "%q is reserved", id)
	}
	if !validAffiliateID(id) {
		return errors.Wrapf(errors.ErrInput, "affiliate id: %q", id)
	}
	return nil
}
