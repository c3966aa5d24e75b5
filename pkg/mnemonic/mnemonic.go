package mnemonic

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

const (
	DefaultEntropySize = 128
)

var (
	ErrInvalidEntropySize = fmt.Errorf("entropy size must be 128, 160, 192, 224 or 256")
	ErrInvalidMnemonic    = fmt.Errorf("invalid mnemonic")
)

type NewMnemonicArgs struct {
	EntropySize uint32
}

func (a NewMnemonicArgs) validate() error {
	if a.EntropySize > 0 {
		if a.EntropySize < 128 || a.EntropySize > 256 || a.EntropySize%32 != 0 {
			return ErrInvalidEntropySize
		}
	}
	return nil
}

// New returns a new mnemonic as a list of words. The number of words depends
// on the entropy size, the default one gives a 12-words mnemonic.
func New(args NewMnemonicArgs) ([]string, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	if args.EntropySize == 0 {
		args.EntropySize = DefaultEntropySize
	}

	entropy, err := bip39.NewEntropy(int(args.EntropySize))
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Fields(mnemonic), nil
}

// IsValid returns whether the given words make a valid bip39 mnemonic
// (english wordlist, checksum included).
func IsValid(words []string) bool {
	if len(words) <= 0 {
		return false
	}
	return bip39.IsMnemonicValid(strings.Join(words, " "))
}

// Validate is like IsValid but returns ErrInvalidMnemonic.
func Validate(words []string) error {
	if !IsValid(words) {
		return ErrInvalidMnemonic
	}
	return nil
}
