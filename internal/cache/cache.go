package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced key from document path segments
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "/")))
	return "canari:v1:" + hex.EncodeToString(hash[:])
}
