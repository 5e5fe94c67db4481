package coin

import (
	"sort"
	"strings"

	"github.com/iov-one/streamdex/errors"
)

// Coins is a set of coins, one per currency, sorted by ticker and with no
// zero values. Use the functions in this file to maintain those invariants.
type Coins []*Coin

// CombineCoins creates a Coins set containing all given coins. It will
// sort them and combine duplicates to produce a normalized set.
func CombineCoins(cs ...Coin) (Coins, error) {
	var res Coins
	for _, c := range cs {
		next, err := res.Add(c)
		if err != nil {
			return nil, err
		}
		res = next
	}
	return res, nil
}

// Clone returns a deep copy of the set.
func (cs Coins) Clone() Coins {
	res := make(Coins, len(cs))
	for i, c := range cs {
		res[i] = c.Clone()
	}
	return res
}

// Add modifies the wallet to add the given coin and returns the new set.
// The original set is not modified. Zero results are dropped so the set
// stays normalized.
func (cs Coins) Add(c Coin) (Coins, error) {
	if c.IsZero() {
		return cs, nil
	}

	idx := sort.Search(len(cs), func(i int) bool {
		return cs[i].Ticker >= c.Ticker
	})

	// Not present yet, insert at the sorted position.
	if idx == len(cs) || cs[idx].Ticker != c.Ticker {
		if !c.IsPositive() {
			return nil, errors.Wrapf(errors.ErrAmount, "cannot subtract %s, no %s balance", c, c.Ticker)
		}
		res := make(Coins, 0, len(cs)+1)
		res = append(res, cs[:idx]...)
		res = append(res, c.Clone())
		res = append(res, cs[idx:]...)
		return res, nil
	}

	sum, err := cs[idx].Add(c)
	if err != nil {
		return nil, err
	}
	if sum.Whole < 0 || sum.Fractional < 0 {
		return nil, errors.Wrapf(errors.ErrAmount, "insufficient %s balance", c.Ticker)
	}

	res := cs.Clone()
	if sum.IsZero() {
		res = append(res[:idx], res[idx+1:]...)
	} else {
		res[idx] = &sum
	}
	return res, nil
}

// Subtract modifies the wallet to remove the given coin and returns the
// new set. Fails if the balance would go negative.
func (cs Coins) Subtract(c Coin) (Coins, error) {
	return cs.Add(c.Negative())
}

// Contains returns true if there is at least that much coin in the set.
func (cs Coins) Contains(c Coin) bool {
	return cs.AmountOf(c.Ticker).IsGTE(c)
}

// AmountOf returns the stored amount of the given currency. A zero value
// coin is returned when the currency is not present.
func (cs Coins) AmountOf(ticker string) Coin {
	idx := sort.Search(len(cs), func(i int) bool {
		return cs[i].Ticker >= ticker
	})
	if idx == len(cs) || cs[idx].Ticker != ticker {
		return Coin{Ticker: ticker}
	}
	return *cs[idx]
}

// IsEmpty returns true if there are no coins in the set.
func (cs Coins) IsEmpty() bool {
	return len(cs) == 0
}

// Validate ensures the set is sorted, deduplicated, positive and that
// every coin is valid.
func (cs Coins) Validate() error {
	last := ""
	for _, c := range cs {
		if c == nil {
			return errors.Wrap(errors.ErrState, "nil coin")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if !c.IsPositive() {
			return errors.Wrapf(errors.ErrAmount, "non-positive coin: %s", c)
		}
		if c.Ticker <= last {
			return errors.Wrapf(errors.ErrState, "coins not sorted: %s", c.Ticker)
		}
		last = c.Ticker
	}
	return nil
}

func (cs Coins) String() string {
	if len(cs) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
