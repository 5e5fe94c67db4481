package orm

import (
	"testing"

	amino "github.com/tendermint/go-amino"

	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int64
}

func (c *counter) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrState, "negative count")
	}
	return nil
}

func TestModelBucketPutAndOne(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, amino.NewCodec())

	key, err := b.Put(db, []byte("a"), &counter{Count: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), key)

	var c counter
	require.NoError(t, b.One(db, []byte("a"), &c))
	assert.Equal(t, int64(5), c.Count)

	err = b.One(db, []byte("unknown"), &c)
	assert.True(t, errors.ErrNotFound.Is(err), "want not found, got %+v", err)
}

func TestModelBucketPutSequence(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, amino.NewCodec())

	// Keys are generated by a sequence when not provided.
	first, err := b.Put(db, nil, &counter{Count: 1})
	require.NoError(t, err)
	second, err := b.Put(db, nil, &counter{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, EncodeSequence(1), first)
	assert.Equal(t, EncodeSequence(2), second)
}

func TestModelBucketPutValidates(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, amino.NewCodec())

	_, err := b.Put(db, []byte("a"), &counter{Count: -1})
	assert.True(t, errors.ErrState.Is(err), "want state error, got %+v", err)
}

func TestModelBucketWrongModelType(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, amino.NewCodec())

	type other struct{ counter }
	_, err := b.Put(db, []byte("a"), &other{})
	assert.True(t, errors.ErrType.Is(err), "want type error, got %+v", err)
}

func TestModelBucketDelete(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, amino.NewCodec())

	_, err := b.Put(db, []byte("a"), &counter{Count: 1})
	require.NoError(t, err)

	require.NoError(t, b.Has(db, []byte("a")))
	require.NoError(t, b.Delete(db, []byte("a")))

	err = b.Has(db, []byte("a"))
	assert.True(t, errors.ErrNotFound.Is(err), "want not found, got %+v", err)
	err = b.Delete(db, []byte("a"))
	assert.True(t, errors.ErrNotFound.Is(err), "want not found, got %+v", err)
}

func TestModelBucketIterate(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, amino.NewCodec())

	for i, key := range []string{"a", "b", "c"} {
		_, err := b.Put(db, []byte(key), &counter{Count: int64(i + 1)})
		require.NoError(t, err)
	}

	// Another bucket sharing the store must not leak into iteration.
	other := NewModelBucket("other", &counter{}, amino.NewCodec())
	_, err := other.Put(db, []byte("x"), &counter{Count: 99})
	require.NoError(t, err)

	var keys []string
	var total int64
	err = b.Iterate(db, func(key []byte, model Model) error {
		keys = append(keys, string(key))
		total += model.(*counter).Count
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, int64(6), total)

	// Early break via ErrIteratorDone is not an error.
	var cnt int
	err = b.Iterate(db, func(key []byte, model Model) error {
		cnt++
		return ErrIteratorDone
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
}

func TestSequence(t *testing.T) {
	db := store.MemStore()
	seq := NewSequence("cnts", "id")

	n, err := seq.NextInt(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = seq.NextInt(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Latest must not advance the counter.
	latest, raw, err := seq.Latest(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest)
	assert.Equal(t, EncodeSequence(2), raw)
}
