package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	ivSize  = 12
	tagSize = 16
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Cipher seals OAuth tokens at rest with AES-256-GCM. Sealed values have the
// form base64(iv):base64(tag):base64(ciphertext).
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 64 character hex encoded key.
func NewCipher(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &Cipher{aead: aead}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	// Seal appends the tag to the ciphertext.
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ct),
	}, ":"), nil
}

func (c *Cipher) Decrypt(sealed string) (string, error) {
	parts := strings.Split(sealed, ":")
	if len(parts) != 3 {
		return "", ErrMalformedCiphertext
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", ErrMalformedCiphertext
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrMalformedCiphertext
	}
	ct, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	plaintext, err := c.aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("decrypting token: %w", err)
	}

	return string(plaintext), nil
}
