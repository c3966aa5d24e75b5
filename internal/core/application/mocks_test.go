package application_test

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/vulpemventures/chaincase/internal/core/domain"
)

var ctx = context.Background()

// ports.BackendClient
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetLatestMatureHeader(
	ctx context.Context,
) (*domain.BlockHeader, error) {
	args := m.Called(ctx)
	var header *domain.BlockHeader
	if a := args.Get(0); a != nil {
		header = a.(*domain.BlockHeader)
	}
	return header, args.Error(1)
}

func (m *mockBackend) RegisterNotificationToken(
	ctx context.Context, token domain.DeviceToken,
) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) GetMempoolRootFilter(
	ctx context.Context,
) (*domain.MempoolFilter, error) {
	args := m.Called(ctx)
	var root *domain.MempoolFilter
	if a := args.Get(0); a != nil {
		root = a.(*domain.MempoolFilter)
	}
	return root, args.Error(1)
}

func (m *mockBackend) GetMempoolSubFilters(
	ctx context.Context,
) (map[string]string, error) {
	args := m.Called(ctx)
	var filters map[string]string
	if a := args.Get(0); a != nil {
		filters = a.(map[string]string)
	}
	return filters, args.Error(1)
}

func (m *mockBackend) GetMempoolTransactionBuckets(
	ctx context.Context, keys []string,
) (map[string][]*wire.MsgTx, error) {
	args := m.Called(ctx, keys)
	var buckets map[string][]*wire.MsgTx
	if a := args.Get(0); a != nil {
		buckets = a.(map[string][]*wire.MsgTx)
	}
	return buckets, args.Error(1)
}

// ports.TransactionProcessor
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(ctx context.Context, update domain.MempoolUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// ports.FilterMatcher
type mockMatcher struct {
	mock.Mock
}

func (m *mockMatcher) MatchFilters(
	ctx context.Context, filters map[string]string,
) ([]string, error) {
	args := m.Called(ctx, filters)
	var keys []string
	if a := args.Get(0); a != nil {
		keys = a.([]string)
	}
	return keys, args.Error(1)
}

// ports.HeaderChain that lags behind by a fixed number of headers.
type fakeChain struct {
	hashesLeft  uint32
	tip         *domain.BlockHeader
	localHeight uint32
	lock        *sync.RWMutex
}

func newFakeChain(hashesLeft uint32) *fakeChain {
	return &fakeChain{hashesLeft: hashesLeft, lock: &sync.RWMutex{}}
}

func (c *fakeChain) HashesLeft() uint32 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.hashesLeft
}

func (c *fakeChain) UpdateServerTip(header domain.BlockHeader) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.tip = &header
}

func (c *fakeChain) ServerTip() *domain.BlockHeader {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.tip
}

func (c *fakeChain) SetLocalTip(height uint32) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.localHeight = height
}

func (c *fakeChain) LocalHeight() uint32 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.localHeight
}

// ports.SecureStore
type inMemorySecureStore struct {
	secrets map[string]string
	lock    *sync.RWMutex
}

func newInMemorySecureStore() *inMemorySecureStore {
	return &inMemorySecureStore{
		secrets: make(map[string]string),
		lock:    &sync.RWMutex{},
	}
}

func (s *inMemorySecureStore) Get(_ context.Context, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.secrets[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (s *inMemorySecureStore) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.secrets[key] = value
	return nil
}

func (s *inMemorySecureStore) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.secrets, key)
	return nil
}

func (s *inMemorySecureStore) Close() {}

// ports.RoundStateProvider
type fakeRoundProvider struct {
	state   *domain.RoundState
	updates chan domain.RoundState
}

func (p *fakeRoundProvider) CurrentRoundState() *domain.RoundState {
	return p.state
}

func (p *fakeRoundProvider) RoundStateUpdates() <-chan domain.RoundState {
	return p.updates
}

func randomHeader(height uint32) *domain.BlockHeader {
	return &domain.BlockHeader{
		Height:     height,
		Hash:       chainhash.DoubleHashH([]byte{byte(height), byte(height >> 8)}),
		BestHeight: height + 100,
	}
}

func randomTx(seed byte) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	prevHash := chainhash.Hash{seed}
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(seed)*1000, []byte{0x00, 0x14, seed}))
	return tx
}
