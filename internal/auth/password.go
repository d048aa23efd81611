package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyPrefix starts every plain API key.
	APIKeyPrefix = "asm_"
	// APIKeyLookupLength is how many leading characters are stored for lookup.
	APIKeyLookupLength = 8

	apiKeyRandomBytes = 20
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// GeneratedAPIKey is shown to the caller once; only Hash and Prefix are stored.
type GeneratedAPIKey struct {
	Plain  string
	Hash   string
	Prefix string
}

// GenerateAPIKey returns "asm_" followed by 40 hex characters.
func GenerateAPIKey(cost int) (*GeneratedAPIKey, error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	plain := APIKeyPrefix + hex.EncodeToString(buf)
	hash, err := HashPassword(plain, cost)
	if err != nil {
		return nil, err
	}
	return &GeneratedAPIKey{Plain: plain, Hash: hash, Prefix: APIKeyLookup(plain)}, nil
}

// APIKeyLookup returns the stored prefix for a plain key.
func APIKeyLookup(plain string) string {
	if len(plain) <= APIKeyLookupLength {
		return plain
	}
	return plain[:APIKeyLookupLength]
}
