package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
)

const gcInterval = 30 * time.Minute

// secret is the persisted form of a secure store entry. The value is
// expected to be already encrypted by the caller.
type secret struct {
	Key       string `badgerhold:"key"`
	Value     string
	UpdatedAt int64
}

type secureStore struct {
	store  *badgerhold.Store
	stopGC chan struct{}
	once   *sync.Once
}

// NewSecureStore returns a badger implementation of ports.SecureStore. If
// dbDir is empty the db is kept in memory, to be used only for testing
// purposes.
func NewSecureStore(dbDir string, logger badger.Logger) (ports.SecureStore, error) {
	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening secure store db: %w", err)
	}

	s := &secureStore{
		store:  store,
		stopGC: make(chan struct{}),
		once:   &sync.Once{},
	}
	if len(dbDir) > 0 {
		go s.runGC()
	}
	return s, nil
}

func (s *secureStore) Get(_ context.Context, key string) (string, error) {
	var entry secret
	if err := s.store.Get(key, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", domain.ErrSecretNotFound
		}
		return "", err
	}
	return entry.Value, nil
}

func (s *secureStore) Set(_ context.Context, key, value string) error {
	if len(key) <= 0 {
		return fmt.Errorf("missing key")
	}
	return s.store.Upsert(key, secret{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().Unix(),
	})
}

func (s *secureStore) Delete(_ context.Context, key string) error {
	if err := s.store.Delete(key, secret{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *secureStore) Close() {
	s.once.Do(func() {
		close(s.stopGC)
		s.store.Close()
	})
}

func (s *secureStore) runGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.store.Badger().RunValueLogGC(0.5); err != nil &&
				!errors.Is(err, badger.ErrNoRewrite) {
				log.Warnf("secure store: garbage collector: %s", err)
			}
		}
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
