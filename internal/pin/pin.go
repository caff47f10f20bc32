// Package pin guards the parent settings with a four digit PIN.
package pin

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for stored PINs.
const Cost = 10

var (
	ErrInvalidFormat = errors.New("PIN must be exactly 4 digits")
	ErrMismatch      = errors.New("incorrect PIN")
	ErrNotSet        = errors.New("no PIN set")
)

// ValidFormat reports whether p is exactly four ASCII digits.
func ValidFormat(p string) bool {
	if len(p) != 4 {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}

// Hash returns the bcrypt hash of p.
func Hash(p string) (string, error) {
	return HashCost(p, Cost)
}

// HashCost is Hash with an explicit work factor.
func HashCost(p string, cost int) (string, error) {
	if !ValidFormat(p) {
		return "", ErrInvalidFormat
	}
	h, err := bcrypt.GenerateFromPassword([]byte(p), cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(h), nil
}

// Verify checks p against hash.
func Verify(p, hash string) error {
	if hash == "" {
		return ErrNotSet
	}
	if !ValidFormat(p) {
		return ErrInvalidFormat
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(p))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("verify pin: %w", err)
	}
	return nil
}
