package migration

import (
	"encoding/binary"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

// ErrSchema is returned on schema version conflicts.
var ErrSchema = errors.Register(1400, "invalid schema")

// Schema declares that a package supports a given schema version. One
// entity is stored per package and version, so the highest stored version
// is the active one.
type Schema struct {
	Metadata *weave.Metadata

	// Pkg is the name of the package this version belongs to.
	Pkg string

	// Version of the schema, starting at 1.
	Version uint32
}

var _ orm.Model = (*Schema)(nil)

func (s *Schema) Validate() error {
	if err := s.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if s.Pkg == "" {
		return errors.Wrap(errors.ErrEmpty, "pkg")
	}
	if s.Version < 1 {
		return errors.Wrap(ErrSchema, "version must be greater than zero")
	}
	return nil
}

// schemaID builds a key that sorts lexicographically from the lowest to
// the highest version of one package.
func schemaID(pkg string, version uint32) []byte {
	raw := make([]byte, len(pkg)+4)
	copy(raw, pkg)
	binary.BigEndian.PutUint32(raw[len(pkg):], version)
	return raw
}

// SchemaBucket stores the supported schema version declarations.
type SchemaBucket struct {
	bucket orm.ModelBucket
}

func NewSchemaBucket() *SchemaBucket {
	return &SchemaBucket{
		bucket: orm.NewModelBucket("schema", &Schema{}, cdc),
	}
}

// CurrentSchema returns the active schema version of the package. It
// returns ErrNotFound if the package was never initialized.
func (b *SchemaBucket) CurrentSchema(db weave.ReadOnlyKVStore, pkg string) (uint32, error) {
	for ver := uint32(1); ver < 10000; ver++ {
		err := b.bucket.Has(db, schemaID(pkg, ver))
		switch {
		case err == nil:
			continue
		case errors.ErrNotFound.Is(err):
			if ver == 1 {
				return 0, errors.Wrapf(errors.ErrNotFound, "package %q not initialized", pkg)
			}
			return ver - 1, nil
		default:
			return 0, errors.Wrap(err, "cannot check schema")
		}
	}
	return 0, errors.Wrap(errors.ErrState, "version too high")
}

// Declare persists the next schema version of a package. Versions are
// strictly sequential, skipping a number is a coding error.
func (b *SchemaBucket) Declare(db weave.KVStore, s *Schema) error {
	cur, err := b.CurrentSchema(db, s.Pkg)
	switch {
	case errors.ErrNotFound.Is(err):
		if s.Version != 1 {
			return errors.Wrap(ErrSchema, "schema must be initialized with version 1")
		}
	case err != nil:
		return err
	case cur+1 != s.Version:
		return errors.Wrapf(errors.ErrDuplicate, "previous schema is %d", cur)
	}
	_, err = b.bucket.Put(db, schemaID(s.Pkg, s.Version), s)
	return err
}

// MustInitPkg registers schema version one for the given packages. Panics
// on failure. Duplicate initializations are ignored so this is safe to
// call from genesis more than once.
func MustInitPkg(db weave.KVStore, packageNames ...string) {
	b := NewSchemaBucket()
	for _, name := range packageNames {
		err := b.Declare(db, &Schema{
			Metadata: &weave.Metadata{Schema: 1},
			Pkg:      name,
			Version:  1,
		})
		if err != nil && !errors.ErrDuplicate.Is(err) {
			panic(errors.Wrap(err, name))
		}
	}
}

// Config holds the migration administration settings. Stored as a
// singleton.
type Config struct {
	Metadata *weave.Metadata

	// Admin may declare new schema versions.
	Admin weave.Address
}

var _ orm.Model = (*Config)(nil)

func (c *Config) Validate() error {
	var err error
	if merr := c.Metadata.Validate(); merr != nil {
		err = errors.Append(err, errors.Wrap(merr, "metadata"))
	}
	if aerr := c.Admin.Validate(); aerr != nil {
		err = errors.Append(err, errors.Wrap(aerr, "admin"))
	}
	return err
}

// configKey is the fixed key of the Config singleton.
var configKey = []byte("config")

// NewConfigBucket creates the bucket holding the Config singleton.
func NewConfigBucket() orm.ModelBucket {
	return orm.NewModelBucket("migconf", &Config{}, cdc)
}
