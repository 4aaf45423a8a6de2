// Package secret generates credential material and produces the one-way
// verification form stored in place of the plaintext.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// KeyPrefix is prepended to every generated key so raw keys are
// recognizable in configuration and logs of calling systems.
const KeyPrefix = "cr_"

// LookupPrefixLen is the number of leading characters of a raw key stored
// in the clear for indexed lookup. The prefix is an index key, not a secret.
const LookupPrefixLen = 8

const rawSecretBytes = 32 // 256 bits of entropy

// Generated holds the output of a single key generation. Plaintext exists
// only here and in the creation response; it is never persisted.
type Generated struct {
	Plaintext    string
	Hash         string
	LookupPrefix string
}

// Generate produces a high-entropy random key and its bcrypt hash.
// An entropy-source failure is fatal for the caller, not retryable.
func Generate() (*Generated, error) {
	buf := make([]byte, rawSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read entropy source: %w", err)
	}

	plaintext := KeyPrefix + base64.RawURLEncoding.EncodeToString(buf)
	hash, err := Hash(plaintext)
	if err != nil {
		return nil, err
	}

	return &Generated{
		Plaintext:    plaintext,
		Hash:         hash,
		LookupPrefix: plaintext[:LookupPrefixLen],
	}, nil
}

// Hash derives the verification form of a caller-supplied secret.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// Verify compares a candidate secret against a stored verification form.
// It never fails on malformed input; anything that does not match is false.
func Verify(candidate, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
