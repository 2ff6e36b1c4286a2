package solana

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/gagliardetto/solana-go"
)

const (
	// MinLimit and MaxLimit bound how many signatures one request may ask for.
	MinLimit = 5
	MaxLimit = 50

	DefaultWalletLimit  = 10
	DefaultProgramLimit = 5

	maxAddressLength = 100 // Solana addresses are 32-44 chars, give buffer
)

var (
	// ErrInvalidAddress is returned for strings that are not a base58 public key.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidLimit is returned for limits outside [MinLimit, MaxLimit].
	ErrInvalidLimit = errors.New("invalid limit")

	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// ParseAddress validates a wallet or program address and decodes it.
func ParseAddress(address string) (solana.PublicKey, error) {
	if address == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}
	if len(address) > maxAddressLength {
		return solana.PublicKey{}, fmt.Errorf("%w: address too long (max %d characters)", ErrInvalidAddress, maxAddressLength)
	}
	if !validAddressRegex.MatchString(address) {
		return solana.PublicKey{}, fmt.Errorf("%w: address contains non-base58 characters", ErrInvalidAddress)
	}
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return pk, nil
}

// ValidateLimit checks that limit lies within [MinLimit, MaxLimit].
func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return fmt.Errorf("%w: must be between %d and %d, got %d", ErrInvalidLimit, MinLimit, MaxLimit, limit)
	}
	return nil
}
