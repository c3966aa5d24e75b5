package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
)

// MaxHashesLeft is the max number of headers the local chain can be behind
// the backend for the mempool to be worth syncing.
const MaxHashesLeft = 100

// MempoolSynchronizer fetches the mempool state of the backend only when it
// changed since the last tick, and hands it over to the transaction
// processor.
//
// At every tick:
//   - the tick is skipped if the header chain is too far behind.
//   - the root filter is fetched and compared with the last one observed. If
//     the key didn't change nothing else is done.
//   - otherwise the sub filters are fetched and matched against the wallet
//     scripts, the relevant buckets are fetched in batches and the update is
//     processed.
//
// The last observed root key is committed only once the update has been
// processed so that a failing tick is retried at the next one.
type MempoolSynchronizer struct {
	backend        ports.BackendClient
	chain          ports.HeaderChain
	matcher        ports.FilterMatcher
	processor      ports.TransactionProcessor
	maxFilterFetch int

	lastRootKey string
	lock        *sync.RWMutex

	log func(format string, a ...interface{})
}

func NewMempoolSynchronizer(
	backend ports.BackendClient, chain ports.HeaderChain,
	matcher ports.FilterMatcher, processor ports.TransactionProcessor,
	maxFilterFetch int,
) (*MempoolSynchronizer, error) {
	if backend == nil {
		return nil, fmt.Errorf("missing backend client")
	}
	if chain == nil {
		return nil, fmt.Errorf("missing header chain")
	}
	if processor == nil {
		return nil, fmt.Errorf("missing transaction processor")
	}
	if maxFilterFetch <= 0 {
		return nil, fmt.Errorf("max filter fetch must be a positive number")
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("mempool sync: %s", format)
		log.Debugf(format, a...)
	}
	return &MempoolSynchronizer{
		backend:        backend,
		chain:          chain,
		matcher:        matcher,
		processor:      processor,
		maxFilterFetch: maxFilterFetch,
		lock:           &sync.RWMutex{},
		log:            logFn,
	}, nil
}

// LastRootKey returns the key of the last processed root filter.
func (s *MempoolSynchronizer) LastRootKey() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.lastRootKey
}

// Sync runs a single tick. It returns the processed update, or nil if there
// was nothing to do.
func (s *MempoolSynchronizer) Sync(
	ctx context.Context,
) (*domain.MempoolUpdate, error) {
	if hashesLeft := s.chain.HashesLeft(); hashesLeft > MaxHashesLeft {
		s.log("skip tick, %d hashes left to sync", hashesLeft)
		return nil, nil
	}

	root, err := s.backend.GetMempoolRootFilter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch root filter: %w", err)
	}
	if root == nil {
		s.log("skip tick, backend has no root filter")
		return nil, nil
	}
	if root.Key == s.LastRootKey() {
		s.log("root filter %s unchanged", root.Key)
		return nil, nil
	}

	subFilters, err := s.backend.GetMempoolSubFilters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sub filters: %w", err)
	}

	keys, err := s.relevantKeys(ctx, subFilters)
	if err != nil {
		return nil, err
	}

	buckets, err := s.fetchBuckets(ctx, keys)
	if err != nil {
		return nil, err
	}

	update := domain.MempoolUpdate{
		Root:       *root,
		SubFilters: subFilters,
		Buckets:    buckets,
	}
	if err := s.processor.Process(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to process mempool update: %w", err)
	}

	s.lock.Lock()
	s.lastRootKey = root.Key
	s.lock.Unlock()

	mempoolUpdates.Inc()
	s.log(
		"processed root filter %s: %d sub filters, %d buckets, %d txs",
		root.Key, len(subFilters), len(buckets), len(update.Transactions()),
	)
	return &update, nil
}

func (s *MempoolSynchronizer) relevantKeys(
	ctx context.Context, subFilters map[string]string,
) ([]string, error) {
	var keys []string
	if s.matcher == nil {
		keys = make([]string, 0, len(subFilters))
		for key := range subFilters {
			keys = append(keys, key)
		}
	} else {
		matched, err := s.matcher.MatchFilters(ctx, subFilters)
		if err != nil {
			return nil, fmt.Errorf("failed to match sub filters: %w", err)
		}
		keys = matched
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MempoolSynchronizer) fetchBuckets(
	ctx context.Context, keys []string,
) (map[string][]*wire.MsgTx, error) {
	buckets := make(map[string][]*wire.MsgTx, len(keys))
	for start := 0; start < len(keys); start += s.maxFilterFetch {
		end := start + s.maxFilterFetch
		if end > len(keys) {
			end = len(keys)
		}

		batch, err := s.backend.GetMempoolTransactionBuckets(ctx, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tx buckets: %w", err)
		}
		for key, txs := range batch {
			buckets[key] = txs
		}
	}
	return buckets, nil
}
