package market

import (
	weave "github.com/iov-one/streamdex"
	"github.com/iov-one/streamdex/errors"
	"github.com/iov-one/streamdex/orm"
)

// PoolInfo is the aggregate state of one distribution pool. It is keyed by
// the market ID followed by the pool tag.
type PoolInfo struct {
	Metadata *weave.Metadata

	// TotalUnits is the sum of all share units of this pool. Kept in
	// lockstep with the individual Share entries.
	TotalUnits int64
}

var _ orm.Model = (*PoolInfo)(nil)

func (p *PoolInfo) Validate() error {
	if err := p.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if p.TotalUnits < 0 {
		return errors.Wrap(errors.ErrAmount, "negative total units")
	}
	return nil
}

// Share is the proportional ownership of one account in one pool. It is
// keyed by the pool key followed by the account address.
type Share struct {
	Metadata *weave.Metadata

	// Units held by the account.
	Units int64
}

var _ orm.Model = (*Share)(nil)

func (s *Share) Validate() error {
	if err := s.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if s.Units < 0 {
		return errors.Wrap(errors.ErrAmount, "negative units")
	}
	return nil
}

// Holder is one entry of a pool listing.
type Holder struct {
	Address weave.Address
	Units   int64
}

// Ledger tracks proportional ownership per pool. Every mutation keeps the
// pool total consistent with the individual entries within the same store
// write set, so an aborted operation never leaves the two out of sync.
type Ledger struct {
	pools  orm.ModelBucket
	shares orm.ModelBucket
}

// NewLedger returns a share ledger over the standard buckets.
func NewLedger() Ledger {
	return Ledger{
		pools:  orm.NewModelBucket("pool", &PoolInfo{}, cdc),
		shares: orm.NewModelBucket("share", &Share{}, cdc),
	}
}

// PoolKey identifies one distribution pool of a market. Output pools are
// tagged by ticker, the subsidy pool by SubsidyPool.
func PoolKey(marketID []byte, tag string) []byte {
	key := make([]byte, 0, len(marketID)+1+len(tag))
	key = append(key, marketID...)
	key = append(key, ':')
	return append(key, tag...)
}

func (l Ledger) shareKey(pool []byte, addr weave.Address) []byte {
	key := make([]byte, 0, len(pool)+1+len(addr))
	key = append(key, pool...)
	key = append(key, '/')
	return append(key, addr...)
}

// SetShare replaces the units held by the account with an absolute value
// and adjusts the pool total by the difference. Setting the current value
// again is a no-op. Zero units remove the entry.
func (l Ledger) SetShare(db weave.KVStore, pool []byte, addr weave.Address, units int64) error {
	if units < 0 {
		return errors.Wrapf(errors.ErrAmount, "negative units: %d", units)
	}

	current, err := l.Share(db, pool, addr)
	if err != nil {
		return err
	}
	if current == units {
		return nil
	}

	key := l.shareKey(pool, addr)
	if units == 0 {
		if err := l.shares.Delete(db, key); err != nil {
			return errors.Wrap(err, "cannot delete share")
		}
	} else {
		share := Share{
			Metadata: &weave.Metadata{Schema: 1},
			Units:    units,
		}
		if _, err := l.shares.Put(db, key, &share); err != nil {
			return errors.Wrap(err, "cannot store share")
		}
	}

	info, err := l.poolInfo(db, pool)
	if err != nil {
		return err
	}
	info.TotalUnits += units - current
	if info.TotalUnits < 0 {
		return errors.Wrap(errors.ErrHuman, "pool total below zero")
	}
	if _, err := l.pools.Put(db, pool, info); err != nil {
		return errors.Wrap(err, "cannot store pool")
	}
	return nil
}

// Share returns the units held by the account, zero if none.
func (l Ledger) Share(db weave.KVStore, pool []byte, addr weave.Address) (int64, error) {
	var share Share
	switch err := l.shares.One(db, l.shareKey(pool, addr), &share); {
	case err == nil:
		return share.Units, nil
	case errors.ErrNotFound.Is(err):
		return 0, nil
	default:
		return 0, errors.Wrap(err, "cannot load share")
	}
}

// TotalUnits returns the pool total, zero for an untouched pool.
func (l Ledger) TotalUnits(db weave.KVStore, pool []byte) (int64, error) {
	info, err := l.poolInfo(db, pool)
	if err != nil {
		return 0, err
	}
	return info.TotalUnits, nil
}

// Holders returns all accounts holding units of this pool, in stable key
// order.
func (l Ledger) Holders(db weave.KVStore, pool []byte) ([]Holder, error) {
	prefix := l.shareKey(pool, nil)
	var holders []Holder
	err := l.shares.Iterate(db, func(key []byte, model orm.Model) error {
		if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			return nil
		}
		holders = append(holders, Holder{
			Address: weave.Address(key[len(prefix):]).Clone(),
			Units:   model.(*Share).Units,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return holders, nil
}

// ZeroAll removes every share of the pool and resets the total. Used on
// emergency drain.
func (l Ledger) ZeroAll(db weave.KVStore, pool []byte) error {
	holders, err := l.Holders(db, pool)
	if err != nil {
		return err
	}
	for _, h := range holders {
		if err := l.shares.Delete(db, l.shareKey(pool, h.Address)); err != nil {
			return errors.Wrap(err, "cannot delete share")
		}
	}
	info, err := l.poolInfo(db, pool)
	if err != nil {
		return err
	}
	info.TotalUnits = 0
	if _, err := l.pools.Put(db, pool, info); err != nil {
		return errors.Wrap(err, "cannot store pool")
	}
	return nil
}

func (l Ledger) poolInfo(db weave.KVStore, pool []byte) (*PoolInfo, error) {
	var info PoolInfo
	switch err := l.pools.One(db, pool, &info); {
	case err == nil:
		return &info, nil
	case errors.ErrNotFound.Is(err):
		return &PoolInfo{Metadata: &weave.Metadata{Schema: 1}}, nil
	default:
		return nil, errors.Wrap(err, "cannot load pool")
	}
}
