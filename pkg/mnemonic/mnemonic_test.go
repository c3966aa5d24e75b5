package mnemonic_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/chaincase/pkg/mnemonic"
)

func TestNew(t *testing.T) {
	tests := []struct {
		entropySize   uint32
		expectedWords int
	}{
		{0, 12},
		{128, 12},
		{160, 15},
		{256, 24},
	}

	for _, tt := range tests {
		words, err := mnemonic.New(mnemonic.NewMnemonicArgs{EntropySize: tt.entropySize})
		require.NoError(t, err)
		require.Len(t, words, tt.expectedWords)
		require.True(t, mnemonic.IsValid(words))
	}

	for _, size := range []uint32{64, 130, 512} {
		words, err := mnemonic.New(mnemonic.NewMnemonicArgs{EntropySize: size})
		require.ErrorIs(t, err, mnemonic.ErrInvalidEntropySize)
		require.Nil(t, words)
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"abandon", "abandon", "abandon", "abandon", "abandon", "abandon",
		"abandon", "abandon", "abandon", "abandon", "abandon", "about",
	}
	require.True(t, mnemonic.IsValid(valid))
	require.NoError(t, mnemonic.Validate(valid))

	badChecksum := append([]string{}, valid...)
	badChecksum[11] = "abandon"
	require.False(t, mnemonic.IsValid(badChecksum))
	require.ErrorIs(t, mnemonic.Validate(badChecksum), mnemonic.ErrInvalidMnemonic)

	require.False(t, mnemonic.IsValid(nil))
	require.False(t, mnemonic.IsValid([]string{"not", "a", "mnemonic"}))
}
