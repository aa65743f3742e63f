package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"justanote/pkg/errors"
)

// KeyDerivationMethod represents the method used for password hashing
type KeyDerivationMethod string

const (
	// Legacy unsalted SHA-256, accepted for verification only
	MethodSHA256 KeyDerivationMethod = "sha256"
	// PBKDF2-SHA256
	MethodPBKDF2 KeyDerivationMethod = "pbkdf2-sha256"
)

// Default PBKDF2 configuration
const (
	DefaultPBKDF2Iterations = 100000 // OWASP recommended minimum
	DefaultKeyLength        = 32     // 256 bits
	SaltLength              = 32     // 256 bits
)

// PasswordHash is a parsed "method$iterations$salt$hash" string
type PasswordHash struct {
	Method     KeyDerivationMethod
	Iterations int
	Salt       []byte
	Hash       []byte
}

// String encodes the hash in its storable form
func (p PasswordHash) String() string {
	if p.Method == MethodSHA256 {
		return string(MethodSHA256) + "$" + hex.EncodeToString(p.Hash)
	}
	return fmt.Sprintf("%s$%d$%s$%s", p.Method, p.Iterations,
		base64.RawStdEncoding.EncodeToString(p.Salt),
		base64.RawStdEncoding.EncodeToString(p.Hash))
}

// GenerateSalt returns SaltLength random bytes
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeApp, "SALT_GENERATION_FAILED",
			"failed to generate salt")
	}
	return salt, nil
}

// HashPassword derives a PBKDF2 hash with a fresh salt
func HashPassword(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, DefaultPBKDF2Iterations, DefaultKeyLength, sha256.New)
	return PasswordHash{
		Method:     MethodPBKDF2,
		Iterations: DefaultPBKDF2Iterations,
		Salt:       salt,
		Hash:       key,
	}.String(), nil
}

// ParsePasswordHash decodes a stored hash string
func ParsePasswordHash(encoded string) (PasswordHash, error) {
	invalid := errors.New(errors.ErrTypeConfig, "PASSWORD_HASH_INVALID", "malformed password hash")

	parts := strings.Split(encoded, "$")
	switch KeyDerivationMethod(parts[0]) {
	case MethodSHA256:
		if len(parts) != 2 {
			return PasswordHash{}, invalid
		}
		sum, err := hex.DecodeString(parts[1])
		if err != nil || len(sum) != sha256.Size {
			return PasswordHash{}, invalid
		}
		return PasswordHash{Method: MethodSHA256, Hash: sum}, nil

	case MethodPBKDF2:
		if len(parts) != 4 {
			return PasswordHash{}, invalid
		}
		iter, err := strconv.Atoi(parts[1])
		if err != nil || iter <= 0 {
			return PasswordHash{}, invalid
		}
		salt, err := base64.RawStdEncoding.DecodeString(parts[2])
		if err != nil {
			return PasswordHash{}, invalid.WithCause(err)
		}
		hash, err := base64.RawStdEncoding.DecodeString(parts[3])
		if err != nil || len(hash) == 0 {
			return PasswordHash{}, invalid
		}
		return PasswordHash{Method: MethodPBKDF2, Iterations: iter, Salt: salt, Hash: hash}, nil
	}

	return PasswordHash{}, invalid.WithContext("method", parts[0])
}

// VerifyPassword checks password against an encoded hash in constant time
func VerifyPassword(password, encoded string) bool {
	ph, err := ParsePasswordHash(encoded)
	if err != nil {
		return false
	}

	var computed []byte
	switch ph.Method {
	case MethodSHA256:
		sum := sha256.Sum256([]byte(password))
		computed = sum[:]
	case MethodPBKDF2:
		computed = pbkdf2.Key([]byte(password), ph.Salt, ph.Iterations, len(ph.Hash), sha256.New)
	}
	return subtle.ConstantTimeCompare(computed, ph.Hash) == 1
}

// DeriveKey derives a symmetric key from a passphrase and salt
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, DefaultPBKDF2Iterations, DefaultKeyLength, sha256.New)
}
