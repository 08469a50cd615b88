// Package credential implements password digests and access-token encoding.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// SaltLength is the default salt length. Four characters matches the legacy
// data this system inherits; treat it as a minimum, not a recommendation.
const SaltLength = 4

const (
	pbkdf2Iterations = 4096
	pbkdf2KeyLength  = 32
)

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HashPassword derives a hex digest from plaintext and salt. Equal inputs
// always produce equal digests; the digest is not invertible.
func HashPassword(plain, salt string) string {
	key := pbkdf2.Key([]byte(plain), []byte(salt), pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword reports whether plaintext hashes to the stored digest under
// the stored salt. The digest comparison is case-insensitive: stored digests
// predate this system and carry mixed-case hex.
func VerifyPassword(plain, salt, digest string) bool {
	return strings.EqualFold(HashPassword(plain, salt), digest)
}

// GenerateSalt returns a random alphanumeric string of length n.
func GenerateSalt(n int) (string, error) {
	if n <= 0 {
		n = SaltLength
	}
	return randomString(saltAlphabet, n)
}

// RandomNumericCode returns a random string of n decimal digits, suitable
// for email verification codes.
func RandomNumericCode(n int) (string, error) {
	return randomString("0123456789", n)
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("credential: random: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
