package filestore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Sealed format: ENC:base64(salt | nonce | ciphertext+tag)
const (
	sealedPrefix     = "ENC:"
	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 100_000
)

type sealer struct {
	passphrase string
}

func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(sealedPrefix))
}

func (s *sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(s.passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "create gcm")
	}
	return gcm, nil
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "generate salt")
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}

	payload := append(salt, nonce...)
	payload = gcm.Seal(payload, nonce, plaintext, nil)

	out := make([]byte, len(sealedPrefix)+base64.StdEncoding.EncodedLen(len(payload)))
	copy(out, sealedPrefix)
	base64.StdEncoding.Encode(out[len(sealedPrefix):], payload)
	return out, nil
}

func (s *sealer) open(sealed []byte) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(string(sealed[len(sealedPrefix):]))
	if err != nil {
		return nil, errors.Wrap(err, "decode sealed session")
	}
	if len(payload) < saltSize {
		return nil, errors.New("sealed session too short")
	}

	salt := payload[:saltSize]
	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	rest := payload[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, errors.New("sealed session too short")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unseal session (wrong passphrase?)")
	}
	return plaintext, nil
}
