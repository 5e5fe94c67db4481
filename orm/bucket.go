package orm

import (
	"reflect"
	"regexp"

	amino "github.com/tendermint/go-amino"

	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
)

var isBucketName = regexp.MustCompile(`^[a-z]{1,10}$`).MatchString

// Model is implemented by any entity that can be stored using ModelBucket.
// Serialization is handled by the bucket codec so models only declare
// their own validation rules.
type Model interface {
	Validate() error
}

// IterateFn is called once for every model visited during iteration. The
// key is stripped of the bucket prefix. Returning ErrIteratorDone stops
// the iteration without an error.
type IterateFn func(key []byte, model Model) error

// ErrIteratorDone is a marker returned from an IterateFn to break out of
// the iteration early.
var ErrIteratorDone = errors.Register(270, "iterator done")

// ModelBucket is implemented by buckets that operate on Models.
type ModelBucket interface {
	// One queries the database for a single model instance. Lookup is
	// done by the primary key. The result is loaded into the given
	// destination model.
	// This method returns ErrNotFound if the entity does not exist in
	// the database.
	// If the given model type cannot contain the stored entity, ErrType
	// is returned.
	One(db weave.ReadOnlyKVStore, key []byte, dest Model) error

	// Put saves the given model in the database. A nil key means the
	// bucket must generate a unique key from its ID sequence. The key
	// used is returned.
	Put(db weave.KVStore, key []byte, m Model) ([]byte, error)

	// Delete removes an entity with the given primary key from the
	// database. It returns ErrNotFound if an entity with the given key
	// does not exist.
	Delete(db weave.KVStore, key []byte) error

	// Has returns nil if an entity with the given primary key exists,
	// ErrNotFound otherwise.
	Has(db weave.ReadOnlyKVStore, key []byte) error

	// Iterate walks all entities of the bucket in ascending key order.
	Iterate(db weave.ReadOnlyKVStore, fn IterateFn) error
}

// NewModelBucket returns a ModelBucket instance storing entities of the
// same type as the given model, under keys prefixed with the bucket name.
// The codec is used for serialization of the stored values.
func NewModelBucket(name string, model Model, cdc *amino.Codec) ModelBucket {
	if !isBucketName(name) {
		panic("invalid bucket name: " + name)
	}

	tp := reflect.TypeOf(model)
	if tp.Kind() != reflect.Ptr || tp.Elem().Kind() != reflect.Struct {
		panic("model must be a pointer to a structure")
	}

	return &modelBucket{
		prefix: []byte(name + ":"),
		idSeq:  NewSequence(name, "id"),
		cdc:    cdc,
		model:  tp,
	}
}

type modelBucket struct {
	prefix []byte
	idSeq  Sequence
	cdc    *amino.Codec
	model  reflect.Type
}

var _ ModelBucket = (*modelBucket)(nil)

func (mb *modelBucket) dbKey(key []byte) []byte {
	res := make([]byte, 0, len(mb.prefix)+len(key))
	res = append(res, mb.prefix...)
	return append(res, key...)
}

func (mb *modelBucket) assertType(dest Model) error {
	if reflect.TypeOf(dest) != mb.model {
		return errors.Wrapf(errors.ErrType, "%T does not belong to this bucket", dest)
	}
	return nil
}

func (mb *modelBucket) One(db weave.ReadOnlyKVStore, key []byte, dest Model) error {
	if err := mb.assertType(dest); err != nil {
		return err
	}
	raw, err := db.Get(mb.dbKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if err := mb.cdc.UnmarshalBinaryBare(raw, dest); err != nil {
		return errors.Wrap(errors.ErrState, err.Error())
	}
	return nil
}

func (mb *modelBucket) Put(db weave.KVStore, key []byte, m Model) ([]byte, error) {
	if err := mb.assertType(m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}

	if key == nil {
		var err error
		key, err = mb.idSeq.NextVal(db)
		if err != nil {
			return nil, errors.Wrap(err, "ID sequence")
		}
	}

	raw, err := mb.cdc.MarshalBinaryBare(m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrState, err.Error())
	}
	if err := db.Set(mb.dbKey(key), raw); err != nil {
		return nil, errors.Wrap(err, "cannot store in the database")
	}
	return key, nil
}

func (mb *modelBucket) Delete(db weave.KVStore, key []byte) error {
	if err := mb.Has(db, key); err != nil {
		return err
	}
	return db.Delete(mb.dbKey(key))
}

func (mb *modelBucket) Has(db weave.ReadOnlyKVStore, key []byte) error {
	if key == nil {
		// nil key is a special case that would match the whole prefix
		return errors.ErrNotFound
	}
	ok, err := db.Has(mb.dbKey(key))
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrNotFound
	}
	return nil
}

func (mb *modelBucket) Iterate(db weave.ReadOnlyKVStore, fn IterateFn) error {
	start, end := prefixRange(mb.prefix)
	it, err := db.Iterator(start, end)
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Valid() {
		model := reflect.New(mb.model.Elem()).Interface().(Model)
		if err := mb.cdc.UnmarshalBinaryBare(it.Value(), model); err != nil {
			return errors.Wrap(errors.ErrState, err.Error())
		}
		key := it.Key()[len(mb.prefix):]
		if err := fn(key, model); err != nil {
			if ErrIteratorDone.Is(err) {
				return nil
			}
			return err
		}
		if err := it.Next(); err != nil {
			return err
		}
	}
	return nil
}

// prefixRange turns a prefix into the (start, end) range that covers all
// keys with that prefix.
//
// In case of a prefix of only 0xff bytes the iteration range is unbound on
// the upper end (nil).
func prefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	return prefix, nil
}
