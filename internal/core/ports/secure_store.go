package ports

import "context"

// SecureStore is the abstraction for any kind of key-value storage intended
// to persist secrets, like the keychain of a device.
type SecureStore interface {
	// Get returns domain.ErrSecretNotFound if no value is stored for key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close()
}
