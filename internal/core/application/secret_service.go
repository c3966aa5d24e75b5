package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
	"github.com/vulpemventures/chaincase/internal/infrastructure/secret-cypher/aesgcm"
	"github.com/vulpemventures/chaincase/pkg/mnemonic"
)

const (
	MaxPasswordLength = 150
)

var (
	ErrMissingPassword  = fmt.Errorf("missing password")
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	ErrInvalidPassword  = fmt.Errorf("invalid password")
	ErrSeedWordsMissing = fmt.Errorf("seed words not found")
	ErrSeedWordsExist   = fmt.Errorf("seed words already stored")
	ErrSeedWordsPlain   = fmt.Errorf(
		"seed words are stored in plaintext and must be migrated first",
	)
	ErrSeedWordsEncrypted = fmt.Errorf("seed words are already encrypted")
	ErrPasswordMismatch   = fmt.Errorf("password and confirmation don't match")
)

// SecretService is responsible for the protection of the wallet seed words:
//   - Generate a new random 12-words mnemonic.
//   - Store the seed words encrypted with a password.
//   - Read the seed words back, given the password.
//   - Check and change the password.
//   - Encrypt the seed words stored in plaintext by older versions, once the
//     user has confirmed the password.
//
// A new cypher is built for every operation and closed right after, so that
// no key material is kept in memory.
type SecretService struct {
	store     ports.SecureStore
	newCypher domain.SecretCypherFactory
	seedKey   string

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewSecretService(
	store ports.SecureStore, newCypher domain.SecretCypherFactory, network string,
) (*SecretService, error) {
	if store == nil {
		return nil, fmt.Errorf("missing secure store")
	}
	if newCypher == nil {
		return nil, fmt.Errorf("missing cypher factory")
	}
	label, err := domain.NetworkLabel(network)
	if err != nil {
		return nil, err
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("secret: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("secret: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &SecretService{store, newCypher, domain.SeedWordsKey(label), logFn, warnFn}, nil
}

// SeedWordsKey returns the key of the secure store entry holding the seed
// words.
func (s *SecretService) SeedWordsKey() string {
	return s.seedKey
}

func (s *SecretService) GenSeed(_ context.Context) ([]string, error) {
	return mnemonic.New(mnemonic.NewMnemonicArgs{})
}

// SetSeedWords encrypts and stores the given seed words. Existing ones are
// never overwritten, use ChangePassword to re-encrypt them.
func (s *SecretService) SetSeedWords(
	ctx context.Context, password string, seedWords []string,
) error {
	if err := guardPassword(password); err != nil {
		return err
	}
	if err := mnemonic.Validate(seedWords); err != nil {
		return err
	}

	exists, err := s.HasSeedWords(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrSeedWordsExist
	}

	if err := s.storeSeedWords(ctx, password, seedWords); err != nil {
		return err
	}
	s.log("seed words stored")
	return nil
}

// GetSeedWords returns the decrypted seed words. ErrInvalidPassword is
// returned if the password doesn't match the one used for encryption.
func (s *SecretService) GetSeedWords(
	ctx context.Context, password string,
) ([]string, error) {
	if err := guardPassword(password); err != nil {
		return nil, err
	}

	value, err := s.getValue(ctx)
	if err != nil {
		return nil, err
	}
	if isPlaintext(value) {
		return nil, ErrSeedWordsPlain
	}

	plaintext, err := s.decrypt(password, value)
	if err != nil {
		return nil, err
	}
	return domain.SplitSeedWords(plaintext), nil
}

func (s *SecretService) HasSeedWords(ctx context.Context) (bool, error) {
	if _, err := s.getValue(ctx); err != nil {
		if errors.Is(err, ErrSeedWordsMissing) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NeedsMigration returns whether the seed words are stored in plaintext.
func (s *SecretService) NeedsMigration(ctx context.Context) (bool, error) {
	value, err := s.getValue(ctx)
	if err != nil {
		return false, err
	}
	return isPlaintext(value), nil
}

// MigrateSeedWords encrypts the seed words stored in plaintext by older
// versions. The password must be typed twice since it can't be checked
// against anything else.
func (s *SecretService) MigrateSeedWords(
	ctx context.Context, password, confirmation string,
) error {
	if err := guardPassword(password); err != nil {
		return err
	}
	if password != confirmation {
		return ErrPasswordMismatch
	}

	value, err := s.getValue(ctx)
	if err != nil {
		return err
	}
	if !isPlaintext(value) {
		return ErrSeedWordsEncrypted
	}

	words := domain.SplitSeedWords(value)
	if err := s.storeSeedWords(ctx, password, words); err != nil {
		return fmt.Errorf("failed to migrate seed words: %w", err)
	}
	s.log("migrated plaintext seed words")
	return nil
}

// IsPasswordValid returns whether the given password decrypts the stored
// seed words. It never modifies the store.
func (s *SecretService) IsPasswordValid(
	ctx context.Context, password string,
) (bool, error) {
	if _, err := s.GetSeedWords(ctx, password); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ChangePassword re-encrypts the stored seed words with the new password.
func (s *SecretService) ChangePassword(
	ctx context.Context, currentPassword, newPassword string,
) error {
	if err := guardPassword(newPassword); err != nil {
		return err
	}

	words, err := s.GetSeedWords(ctx, currentPassword)
	if err != nil {
		return err
	}
	if err := s.storeSeedWords(ctx, newPassword, words); err != nil {
		return err
	}
	s.log("password changed")
	return nil
}

func (s *SecretService) getValue(ctx context.Context) (string, error) {
	value, err := s.store.Get(ctx, s.seedKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", ErrSeedWordsMissing
		}
		return "", err
	}
	if len(value) <= 0 {
		return "", ErrSeedWordsMissing
	}
	return value, nil
}

func (s *SecretService) storeSeedWords(
	ctx context.Context, password string, words []string,
) error {
	cypher, err := s.newCypher(password)
	if err != nil {
		return err
	}
	defer cypher.Close()

	envelope, err := cypher.Encrypt(strings.Join(words, " "))
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.seedKey, envelope)
}

func (s *SecretService) decrypt(password, envelope string) (string, error) {
	cypher, err := s.newCypher(password)
	if err != nil {
		return "", err
	}
	defer cypher.Close()

	plaintext, err := cypher.Decrypt(envelope)
	if err != nil {
		if errors.Is(err, aesgcm.ErrIntegrity) {
			return "", fmt.Errorf("%w: %w", ErrInvalidPassword, err)
		}
		s.warn(err, "failed to decrypt seed words")
		return "", err
	}
	return plaintext, nil
}

// isPlaintext tells whether the stored value is a bare mnemonic, as written
// by older versions, rather than an envelope.
func isPlaintext(value string) bool {
	return mnemonic.IsValid(domain.SplitSeedWords(value))
}

func guardPassword(password string) error {
	if len(password) <= 0 {
		return ErrMissingPassword
	}
	if utf8.RuneCountInString(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
