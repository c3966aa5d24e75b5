package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
)

type secureStore struct {
	secrets map[string]string
	lock    *sync.RWMutex
}

// NewSecureStore returns an in-memory implementation of ports.SecureStore.
// Nothing survives a restart.
func NewSecureStore() ports.SecureStore {
	return &secureStore{
		secrets: make(map[string]string),
		lock:    &sync.RWMutex{},
	}
}

func (s *secureStore) Get(_ context.Context, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.secrets[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (s *secureStore) Set(_ context.Context, key, value string) error {
	if len(key) <= 0 {
		return fmt.Errorf("missing key")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.secrets[key] = value
	return nil
}

func (s *secureStore) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.secrets, key)
	return nil
}

func (s *secureStore) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.secrets = make(map[string]string)
}
