// Package token issues and verifies the opaque bearer and refresh tokens of
// anonymous sessions. Only a short lookup prefix and a bcrypt hash of each
// token are ever stored.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	AccessPrefix  = "jt_"
	RefreshPrefix = "jr_"

	// PrefixLen is the number of leading characters stored in clear for lookup.
	PrefixLen = 12

	secretBytes = 24
)

var ErrMalformed = errors.New("malformed token")

// Issued is a freshly generated token and what gets persisted for it.
type Issued struct {
	Raw    string
	Prefix string
	Hash   string
}

// Generate returns a random token carrying kind (AccessPrefix or
// RefreshPrefix), hashed with cost.
func Generate(kind string, cost int) (Issued, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return Issued{}, err
	}
	raw := kind + hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Raw: raw, Prefix: raw[:PrefixLen], Hash: string(hash)}, nil
}

// Prefix returns the lookup prefix of a raw token of the given kind.
func Prefix(kind, raw string) (string, error) {
	if len(raw) < PrefixLen || !strings.HasPrefix(raw, kind) {
		return "", ErrMalformed
	}
	return raw[:PrefixLen], nil
}

func Matches(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
