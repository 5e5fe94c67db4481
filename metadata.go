package streamdex

import (
	"github.com/iov-one/streamdex/errors"
)

// Metadata is carried by every persisted model and every message. It binds
// an entity to its schema version so that the state can be migrated when
// the entity definition changes.
type Metadata struct {
	Schema uint32
}

func (m *Metadata) Validate() error {
	if m == nil {
		return errors.Wrap(errors.ErrMetadata, "missing metadata")
	}
	if m.Schema < 1 {
		return errors.Wrap(errors.ErrMetadata, "schema version must be greater than zero")
	}
	return nil
}

func (m *Metadata) Copy() *Metadata {
	if m == nil {
		return nil
	}
	return &Metadata{Schema: m.Schema}
}
