package domain

import (
	"sort"

	"github.com/btcsuite/btcd/wire"
)

// MempoolFilter is a compact summary of the unconfirmed txs known by the
// backend, identified by a short key. The key of the root filter changes
// whenever the mempool does, so it's used as a cheap freshness check.
type MempoolFilter struct {
	Key   string
	Value string
}

// MempoolUpdate is the new mempool state handed over to the transaction
// processor when the root filter changes.
type MempoolUpdate struct {
	Root       MempoolFilter
	SubFilters map[string]string
	Buckets    map[string][]*wire.MsgTx
}

// BucketKeys returns the keys of the fetched buckets in lexicographic order.
func (u MempoolUpdate) BucketKeys() []string {
	keys := make([]string, 0, len(u.Buckets))
	for key := range u.Buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Transactions returns all txs contained in the fetched buckets, ordered by
// bucket key.
func (u MempoolUpdate) Transactions() []*wire.MsgTx {
	txs := make([]*wire.MsgTx, 0)
	for _, key := range u.BucketKeys() {
		txs = append(txs, u.Buckets[key]...)
	}
	return txs
}
