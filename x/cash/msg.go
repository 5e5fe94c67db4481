package cash

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/coin"
	"github.com/iov-one/streamdex/errors"
)

const maxMemoSize = 128

// SendMsg transfers coins between two wallets.
type SendMsg struct {
	Metadata *weave.Metadata
	Source   weave.Address
	Dest     weave.Address
	Amount   *coin.Coin
	// Memo is a max 128 characters note for the receiver.
	Memo string
}

var _ weave.Msg = (*SendMsg)(nil)

func (SendMsg) Path() string {
	return "cash/send"
}

func (m SendMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if m.Amount == nil {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "no amount"))
	} else if averr := m.Amount.Validate(); averr != nil {
		err = errors.Append(err, averr)
	} else if !m.Amount.IsPositive() {
		err = errors.Append(err, errors.Wrapf(errors.ErrAmount, "non-positive: %s", m.Amount))
	}
	if serr := m.Source.Validate(); serr != nil {
		err = errors.Append(err, errors.Wrap(serr, "source"))
	}
	if derr := m.Dest.Validate(); derr != nil {
		err = errors.Append(err, errors.Wrap(derr, "destination"))
	}
	if len(m.Memo) > maxMemoSize {
		err = errors.Append(err, errors.Wrap(errors.ErrInput, "memo too long"))
	}
	return err
}
