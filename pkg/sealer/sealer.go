package sealer

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const (
	tokenBytes     = 32
	minSecretBytes = 16
	redactedPrefix = 8
)

var ErrWeakSecret = errors.New("sealer secret must be at least 16 bytes")

// Issuer mints opaque session tokens and one-time numeric codes, and seals
// codes into keyed digests so plaintext codes are never persisted.
type Issuer struct {
	key []byte
}

func New(secret string) (*Issuer, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}
	if len(key) < minSecretBytes {
		return nil, ErrWeakSecret
	}
	return &Issuer{key: key}, nil
}

// SessionToken returns a URL-safe bearer token with 256 bits of entropy.
func (i *Issuer) SessionToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NumericCode returns a zero-padded numeric code of the given length.
func (i *Issuer) NumericCode(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// Seal binds a code to a scope (the session token) so a digest leaked for one
// session cannot be replayed against another.
func (i *Issuer) Seal(scope, code string) string {
	mac := hmac.New(sha256.New, i.key)
	mac.Write([]byte(scope))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

func (i *Issuer) Match(scope, code, digest string) bool {
	expected := i.Seal(scope, code)
	return hmac.Equal([]byte(expected), []byte(digest))
}

// Redact keeps a short prefix of a token for log correlation.
func Redact(token string) string {
	if len(token) <= redactedPrefix {
		return token
	}
	return token[:redactedPrefix] + "..."
}
