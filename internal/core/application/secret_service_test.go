package application_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/chaincase/internal/core/application"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/infrastructure/secret-cypher/aesgcm"
)

const (
	password    = "password"
	newPassword = "newpassword"
)

var seedWords = strings.Fields(
	"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
)

func TestSecretService(t *testing.T) {
	t.Run("gen seed", func(t *testing.T) {
		svc := newTestSecretService(t, newInMemorySecureStore())

		words, err := svc.GenSeed(ctx)
		require.NoError(t, err)
		require.Len(t, words, 12)
	})

	t.Run("set and get seed words", func(t *testing.T) {
		store := newInMemorySecureStore()
		svc := newTestSecretService(t, store)
		require.Equal(t, "TestNet-seedWords", svc.SeedWordsKey())

		exists, err := svc.HasSeedWords(ctx)
		require.NoError(t, err)
		require.False(t, exists)

		_, err = svc.GetSeedWords(ctx, password)
		require.ErrorIs(t, err, application.ErrSeedWordsMissing)

		require.NoError(t, svc.SetSeedWords(ctx, password, seedWords))

		exists, err = svc.HasSeedWords(ctx)
		require.NoError(t, err)
		require.True(t, exists)

		stored, err := store.Get(ctx, svc.SeedWordsKey())
		require.NoError(t, err)
		require.NotContains(t, stored, "abandon")

		words, err := svc.GetSeedWords(ctx, password)
		require.NoError(t, err)
		require.Equal(t, seedWords, words)

		err = svc.SetSeedWords(ctx, password, seedWords)
		require.ErrorIs(t, err, application.ErrSeedWordsExist)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := newTestSecretService(t, newInMemorySecureStore())
		require.NoError(t, svc.SetSeedWords(ctx, password, seedWords))

		words, err := svc.GetSeedWords(ctx, "wrong")
		require.ErrorIs(t, err, application.ErrInvalidPassword)
		require.ErrorIs(t, err, aesgcm.ErrIntegrity)
		require.Nil(t, words)

		ok, err := svc.IsPasswordValid(ctx, "wrong")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = svc.IsPasswordValid(ctx, password)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("change password", func(t *testing.T) {
		svc := newTestSecretService(t, newInMemorySecureStore())
		require.NoError(t, svc.SetSeedWords(ctx, password, seedWords))

		err := svc.ChangePassword(ctx, "wrong", newPassword)
		require.ErrorIs(t, err, application.ErrInvalidPassword)

		require.NoError(t, svc.ChangePassword(ctx, password, newPassword))

		_, err = svc.GetSeedWords(ctx, password)
		require.ErrorIs(t, err, application.ErrInvalidPassword)

		words, err := svc.GetSeedWords(ctx, newPassword)
		require.NoError(t, err)
		require.Equal(t, seedWords, words)
	})

	t.Run("legacy plaintext seed words", func(t *testing.T) {
		store := newInMemorySecureStore()
		key := domain.SeedWordsKey("TestNet")
		plaintext := strings.Join(seedWords, " ")
		require.NoError(t, store.Set(ctx, key, plaintext))

		svc := newTestSecretService(t, store)
		needsMigration, err := svc.NeedsMigration(ctx)
		require.NoError(t, err)
		require.True(t, needsMigration)

		// Reads and checks with a mistyped password must not touch the store.
		_, err = svc.GetSeedWords(ctx, "pasword-typo")
		require.ErrorIs(t, err, application.ErrSeedWordsPlain)

		ok, err := svc.IsPasswordValid(ctx, "pasword-typo")
		require.ErrorIs(t, err, application.ErrSeedWordsPlain)
		require.False(t, ok)

		err = svc.ChangePassword(ctx, "pasword-typo", newPassword)
		require.ErrorIs(t, err, application.ErrSeedWordsPlain)

		stored, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, plaintext, stored)

		err = svc.MigrateSeedWords(ctx, password, "pasword-typo")
		require.ErrorIs(t, err, application.ErrPasswordMismatch)
		stored, err = store.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, plaintext, stored)

		require.NoError(t, svc.MigrateSeedWords(ctx, password, password))

		stored, err = store.Get(ctx, key)
		require.NoError(t, err)
		require.NotContains(t, stored, "abandon")

		needsMigration, err = svc.NeedsMigration(ctx)
		require.NoError(t, err)
		require.False(t, needsMigration)

		words, err := svc.GetSeedWords(ctx, password)
		require.NoError(t, err)
		require.Equal(t, seedWords, words)

		_, err = svc.GetSeedWords(ctx, "pasword-typo")
		require.ErrorIs(t, err, application.ErrInvalidPassword)

		err = svc.MigrateSeedWords(ctx, password, password)
		require.ErrorIs(t, err, application.ErrSeedWordsEncrypted)
	})

	t.Run("migrate without seed words", func(t *testing.T) {
		svc := newTestSecretService(t, newInMemorySecureStore())

		err := svc.MigrateSeedWords(ctx, password, password)
		require.ErrorIs(t, err, application.ErrSeedWordsMissing)

		err = svc.MigrateSeedWords(ctx, "", "")
		require.ErrorIs(t, err, application.ErrMissingPassword)
	})

	t.Run("password check never writes", func(t *testing.T) {
		store := newInMemorySecureStore()
		svc := newTestSecretService(t, store)
		require.NoError(t, svc.SetSeedWords(ctx, password, seedWords))

		before, err := store.Get(ctx, svc.SeedWordsKey())
		require.NoError(t, err)

		for _, pwd := range []string{password, "wrong"} {
			_, err := svc.IsPasswordValid(ctx, pwd)
			require.NoError(t, err)
		}

		after, err := store.Get(ctx, svc.SeedWordsKey())
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("corrupted envelope", func(t *testing.T) {
		store := newInMemorySecureStore()
		svc := newTestSecretService(t, store)
		require.NoError(t, store.Set(ctx, svc.SeedWordsKey(), "not an envelope"))

		_, err := svc.GetSeedWords(ctx, password)
		require.ErrorIs(t, err, aesgcm.ErrFormat)
		require.NotErrorIs(t, err, application.ErrInvalidPassword)
	})

	t.Run("invalid args", func(t *testing.T) {
		svc := newTestSecretService(t, newInMemorySecureStore())

		err := svc.SetSeedWords(ctx, "", seedWords)
		require.ErrorIs(t, err, application.ErrMissingPassword)

		err = svc.SetSeedWords(ctx, strings.Repeat("ü", application.MaxPasswordLength+1), seedWords)
		require.ErrorIs(t, err, application.ErrPasswordTooLong)

		err = svc.SetSeedWords(ctx, strings.Repeat("ü", application.MaxPasswordLength), seedWords)
		require.NoError(t, err)

		other := newTestSecretService(t, newInMemorySecureStore())
		err = other.SetSeedWords(ctx, password, []string{"not", "a", "mnemonic"})
		require.Error(t, err)
	})
}

func TestNewSecretService(t *testing.T) {
	store := newInMemorySecureStore()

	_, err := application.NewSecretService(nil, aesgcm.NewSecretCypher, domain.NetworkMainnet)
	require.Error(t, err)
	_, err = application.NewSecretService(store, nil, domain.NetworkMainnet)
	require.Error(t, err)
	_, err = application.NewSecretService(store, aesgcm.NewSecretCypher, "liquid")
	require.ErrorIs(t, err, domain.ErrUnknownNetwork)

	svc, err := application.NewSecretService(store, aesgcm.NewSecretCypher, domain.NetworkMainnet)
	require.NoError(t, err)
	require.Equal(t, "Main-seedWords", svc.SeedWordsKey())
}

func newTestSecretService(
	t *testing.T, store *inMemorySecureStore,
) *application.SecretService {
	svc, err := application.NewSecretService(
		store, aesgcm.NewSecretCypher, domain.NetworkTestnet,
	)
	require.NoError(t, err)
	return svc
}
