package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	keyBytes    = 20 // 40 hex chars
	keyIndexLen = 8
)

// GeneratedKey is a freshly minted API key. Plaintext is shown to the caller
// once and never stored.
type GeneratedKey struct {
	Plaintext string
	Index     string
	Hash      string
}

func GenerateKey() (GeneratedKey, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return GeneratedKey{}, fmt.Errorf("read random: %w", err)
	}
	plain := hex.EncodeToString(b)
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("hash key: %w", err)
	}
	return GeneratedKey{Plaintext: plain, Index: KeyIndex(plain), Hash: string(hash)}, nil
}

// KeyIndex is the non-secret prefix used to narrow the bcrypt comparisons.
func KeyIndex(key string) string {
	if len(key) < keyIndexLen {
		return key
	}
	return key[:keyIndexLen]
}

func keyMatches(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// HashPassword is used by the seed command and tests.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func passwordMatches(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// cacheKey derives the resolution cache key. The plaintext key never reaches
// the cache.
func cacheKey(secret, key string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(key))
	return "apikey:" + hex.EncodeToString(mac.Sum(nil))
}

func cacheIDKey(keyID int64) string {
	return fmt.Sprintf("apikey:id:%d", keyID)
}
