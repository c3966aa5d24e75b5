package domain

import (
	"fmt"
	"strings"
)

const (
	seedWordsKeyFormat = "%s-seedWords"
)

var (
	ErrSecretNotFound = fmt.Errorf("secret not found")
)

// SecretCypher defines the methods an authenticated cypher must implement to
// protect secrets with a key derived from a password. The password is bound
// to the cypher at creation time.
type SecretCypher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
	// Close wipes the key material.
	Close()
}

// SecretCypherFactory returns a new cypher for the given password.
type SecretCypherFactory func(password string) (SecretCypher, error)

// SeedWordsKey returns the secure storage key under which the seed words of
// the wallet for the given network label are stored.
func SeedWordsKey(networkLabel string) string {
	return fmt.Sprintf(seedWordsKeyFormat, networkLabel)
}

// SplitSeedWords splits a space separated mnemonic into words.
func SplitSeedWords(mnemonic string) []string {
	return strings.Fields(mnemonic)
}
