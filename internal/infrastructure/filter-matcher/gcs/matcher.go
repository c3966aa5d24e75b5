package gcsmatcher

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil/gcs"
	"github.com/btcsuite/btcd/btcutil/gcs/builder"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/ports"
)

// Matcher matches golomb-coded mempool sub filters against the scripts
// watched by the wallet.
type Matcher struct {
	scripts ports.ScriptProvider
	p       uint8
	m       uint64

	warn func(err error, format string, a ...interface{})
}

func NewMatcher(scripts ports.ScriptProvider) (*Matcher, error) {
	if scripts == nil {
		return nil, fmt.Errorf("missing script provider")
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("filter matcher: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &Matcher{scripts, builder.DefaultP, builder.DefaultM, warnFn}, nil
}

// MatchFilters returns the keys of the filters matching any of the watched
// scripts, in lexicographic order. Filters that can't be decoded are
// considered relevant so that no tx can be missed.
func (m *Matcher) MatchFilters(
	ctx context.Context, filters map[string]string,
) ([]string, error) {
	scripts, err := m.scripts.WatchedScripts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get watched scripts: %w", err)
	}
	if len(scripts) <= 0 {
		return []string{}, nil
	}

	keys := make([]string, 0)
	for key, value := range filters {
		match, err := m.match(key, value, scripts)
		if err != nil {
			m.warn(err, "failed to decode filter %s, fetching it anyway", key)
			match = true
		}
		if match {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Matcher) match(key, value string, scripts [][]byte) (bool, error) {
	if len(value) <= 0 {
		return false, nil
	}

	raw, err := hex.DecodeString(value)
	if err != nil {
		return false, err
	}
	filter, err := gcs.FromNBytes(m.p, m.m, raw)
	if err != nil {
		return false, err
	}
	if filter.N() == 0 {
		return false, nil
	}

	return filter.MatchAny(builder.DeriveKey(FilterKeyHash(key)), scripts)
}

// FilterKeyHash returns the hash the siphash key of a filter is derived
// from. Keys that are hashes themselves are used as is, any other key is
// hashed.
func FilterKeyHash(key string) *chainhash.Hash {
	if len(key) == chainhash.MaxHashStringSize {
		if hash, err := chainhash.NewHashFromStr(key); err == nil {
			return hash
		}
	}
	hash := chainhash.HashH([]byte(key))
	return &hash
}
