package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/vulpemventures/chaincase/internal/core/domain"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the derived AES-128 key.
	KeySize = 16
	// SaltSize is the size of the fixed all-zero salt used for key
	// derivation. Envelopes produced so far depend on it.
	SaltSize = 8
	// Iterations is the PBKDF2 iteration count.
	Iterations = 1000
	// NonceSize is the max (and only supported) GCM nonce size.
	NonceSize = 12
	// TagSize is the max GCM tag size, used for every new envelope.
	TagSize = 16

	minTagSize = 12
)

var (
	ErrIntegrity     = fmt.Errorf("message authentication failed")
	ErrFormat        = fmt.Errorf("malformed envelope")
	ErrCypherClosed  = fmt.Errorf("cypher is closed")
	ErrEmptyPassword = fmt.Errorf("missing password")
)

// Cypher encrypts and decrypts strings with AES-GCM, using a key derived from
// a password. It's safe for concurrent use.
type Cypher struct {
	key  []byte
	aead cipher.AEAD
	lock *sync.RWMutex
}

// NewCypher derives the key from the given password and returns a ready to
// use Cypher. The caller must Close it once done.
func NewCypher(password string) (*Cypher, error) {
	if len(password) <= 0 {
		return nil, ErrEmptyPassword
	}

	key := DeriveKey(password)
	aead, err := newAEAD(key, TagSize)
	if err != nil {
		return nil, err
	}

	return &Cypher{key, aead, &sync.RWMutex{}}, nil
}

// NewSecretCypher is the domain.SecretCypherFactory backed by this package.
func NewSecretCypher(password string) (domain.SecretCypher, error) {
	return NewCypher(password)
}

// DeriveKey returns the PBKDF2-HMAC-SHA1 key for the given password.
func DeriveKey(password string) []byte {
	salt := make([]byte, SaltSize)
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha1.New)
}

// Encrypt encrypts the given plaintext with a fresh random nonce and returns
// the base64 envelope.
func (c *Cypher) Encrypt(plaintext string) (string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.aead == nil {
		return "", ErrCypherClosed
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(sealed) - TagSize
	envelope := Envelope{
		Nonce:      nonce,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}
	return envelope.String(), nil
}

// Decrypt opens the given envelope. It returns ErrFormat if the envelope is
// malformed and ErrIntegrity if it was tampered or encrypted with a different
// key.
func (c *Cypher) Decrypt(envelope string) (string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.aead == nil {
		return "", ErrCypherClosed
	}

	e, err := ParseEnvelope(envelope)
	if err != nil {
		return "", err
	}
	if len(e.Nonce) != NonceSize {
		return "", fmt.Errorf("%w: unsupported nonce size %d", ErrFormat, len(e.Nonce))
	}
	if len(e.Tag) < minTagSize || len(e.Tag) > TagSize {
		return "", fmt.Errorf("%w: unsupported tag size %d", ErrFormat, len(e.Tag))
	}

	aead := c.aead
	if len(e.Tag) != TagSize {
		if aead, err = newAEAD(c.key, len(e.Tag)); err != nil {
			return "", err
		}
	}

	sealed := make([]byte, 0, len(e.Ciphertext)+len(e.Tag))
	sealed = append(sealed, e.Ciphertext...)
	sealed = append(sealed, e.Tag...)
	plaintext, err := aead.Open(nil, e.Nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid utf8", ErrFormat)
	}

	return string(plaintext), nil
}

// Close wipes the derived key. Any following call to Encrypt or Decrypt
// returns ErrCypherClosed.
func (c *Cypher) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := range c.key {
		c.key[i] = 0
	}
	c.key = nil
	c.aead = nil
}

func newAEAD(key []byte, tagSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithTagSize(block, tagSize)
}
