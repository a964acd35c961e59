package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// ErrInvalidToken is returned for a token that matches no operator.
var ErrInvalidToken = errors.New("invalid token")

type tokenEntry struct {
	name   string
	digest [sha256.Size]byte
}

// TokenValidator checks presented tokens against the configured set.
type TokenValidator struct {
	entries []tokenEntry
}

// NewTokenValidator hashes tokens once up front. Tokens with an empty value
// are ignored.
func NewTokenValidator(tokens []Token) *TokenValidator {
	v := &TokenValidator{}
	for _, t := range tokens {
		if t.Value == "" {
			continue
		}
		v.entries = append(v.entries, tokenEntry{name: t.Name, digest: sha256.Sum256([]byte(t.Value))})
	}
	return v
}

// Enabled reports whether any token is configured.
func (v *TokenValidator) Enabled() bool {
	return len(v.entries) > 0
}

// Validate returns the operator owning token. Every entry is compared so
// the time taken does not depend on which one matches.
func (v *TokenValidator) Validate(token string) (Operator, error) {
	digest := sha256.Sum256([]byte(token))
	match := -1
	for i := range v.entries {
		if subtle.ConstantTimeCompare(digest[:], v.entries[i].digest[:]) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return Operator{}, ErrInvalidToken
	}
	return Operator{Name: v.entries[match].name}, nil
}
