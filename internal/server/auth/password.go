package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultSaltSize is the salt length used for new principals.
	DefaultSaltSize = 16

	pbkdf2Iterations = 100_000
	pbkdf2KeyLength  = 32
)

// GenerateSalt returns size bytes from a cryptographically secure source.
func GenerateSalt(size int) []byte {
	return common.GenerateRandByteArray(size)
}

// HashPassword derives a 32-byte PBKDF2-HMAC-SHA256 key (100,000 iterations)
// and returns it base64-encoded. The same password and salt always give the
// same string. No input validation happens here.
func HashPassword(password string, salt []byte) string {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

// VerifyPassword recomputes the hash and compares it with expectedHash in
// constant time.
func VerifyPassword(password string, salt []byte, expectedHash string) bool {
	actual := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}
