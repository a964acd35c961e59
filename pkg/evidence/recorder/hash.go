package recorder

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SubjectHasher hashes candidate identifiers for the evidence trail.
type SubjectHasher struct {
	key []byte
}

// NewSubjectHasher returns a hasher keyed with key. An empty key falls
// back to plain SHA-256, which an operator with a list of candidate ids
// can reverse.
func NewSubjectHasher(key string) *SubjectHasher {
	if key == "" {
		return &SubjectHasher{}
	}
	return &SubjectHasher{key: []byte(key)}
}

// Keyed reports whether an HMAC key is in use.
func (h *SubjectHasher) Keyed() bool {
	return len(h.key) > 0
}

// Hash returns the hex-encoded digest of id, or "" for an empty id.
func (h *SubjectHasher) Hash(id string) string {
	if id == "" {
		return ""
	}
	if !h.Keyed() {
		sum := sha256.Sum256([]byte(id))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
