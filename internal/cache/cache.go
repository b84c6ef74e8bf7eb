package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// keyVersion is bumped whenever prompt or response layout changes
const keyVersion = "v1"

// Cache stores LLM responses keyed by request fingerprint
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a stable key for a namespaced request.
// Parts are joined with a separator that cannot appear in UTF-8 text so
// ("ab","c") and ("a","bc") never collide.
func CacheKey(namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\xff")))
	return "legalyze:" + keyVersion + ":" + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// Nop is a Cache that stores nothing
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error { return nil }
func (Nop) Clear() error { return nil }
