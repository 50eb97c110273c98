package utils

import (
	"crypto/rand"
	"encoding/base64"
)

const apiKeyPrefix = "cp_"

// GenerateAPIKey returns a prefixed url-safe key built from length random bytes.
func GenerateAPIKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
