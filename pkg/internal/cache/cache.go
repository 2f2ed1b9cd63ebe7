package cache

import (
	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

// NewStore builds the in-process cache backing for read-side queries.
func NewStore() (store.StoreInterface, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     1 << 29,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return ristretto_store.NewRistretto(ristrettoCache), nil
}
