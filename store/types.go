package store

import (
	streamdex "github.com/iov-one/streamdex"
)

// Move references for all storage types into this package for shorter names
// everywhere.

type ReadOnlyKVStore = streamdex.ReadOnlyKVStore
type KVStore = streamdex.KVStore
type SetDeleter = streamdex.SetDeleter
type Iterator = streamdex.Iterator
type CacheableKVStore = streamdex.CacheableKVStore
type KVCacheWrap = streamdex.KVCacheWrap
type Batch = streamdex.Batch

// Model groups a key-value pair.
type Model struct {
	Key   []byte
	Value []byte
}
