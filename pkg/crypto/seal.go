package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"justanote/pkg/errors"
)

// sealedPrefix marks a sealed value so plaintext written before sealing was
// enabled still reads back.
const sealedPrefix = "enc:v1:"

// Sealer encrypts short field values with AES-256-GCM
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a key from passphrase and salt
func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New(errors.ErrTypeConfig, "SEAL_KEY_EMPTY", "sealing passphrase is empty")
	}
	block, err := aes.NewCipher(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "SEAL_INIT_FAILED", "failed to create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "SEAL_INIT_FAILED", "failed to create GCM")
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeApp, "NONCE_FAILED", "failed to generate nonce")
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed value. Unsealed input is returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeStorage, "UNSEAL_FAILED", "sealed value is not base64")
	}
	ns := s.aead.NonceSize()
	if len(data) < ns {
		return "", errors.New(errors.ErrTypeStorage, "UNSEAL_FAILED", "sealed value too short")
	}
	plain, err := s.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeStorage, "UNSEAL_FAILED", "failed to decrypt sealed value")
	}
	return string(plain), nil
}
