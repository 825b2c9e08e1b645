// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrMissingAdminKey = errors.New("admin key required")
)

// NewID returns a random UUID string for party and vote records
func NewID() string {
	return uuid.NewString()
}

// ValidateAdminKey compares the presented key against the shared admin secret.
// An empty secret disables admin access entirely.
func ValidateAdminKey(presented, secret string) error {
	if secret == "" || presented == "" {
		return ErrMissingAdminKey
	}
	if !SecretEqual(presented, secret) {
		return ErrInvalidAdminKey
	}
	return nil
}

// SecretEqual reports whether a and b are equal without leaking timing
func SecretEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// HashIP creates a one-way hash of an IP address for privacy
// The hash is the voting origin key: one vote per hash
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
