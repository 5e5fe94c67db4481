package migration

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
)

// UpgradeSchemaMsg declares the next schema version of a package as
// supported. Admin only.
type UpgradeSchemaMsg struct {
	Metadata *weave.Metadata
	Pkg      string
}

var _ weave.Msg = (*UpgradeSchemaMsg)(nil)

func (UpgradeSchemaMsg) Path() string {
	return "migration/upgrade_schema"
}

func (m UpgradeSchemaMsg) Validate() error {
	var err error
	if merr := m.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if m.Pkg == "" {
		err = errors.Append(err, errors.Wrap(errors.ErrEmpty, "pkg"))
	}
	return err
}
