// Package store caches retrieval answers so repeated queries skip the provider round trip.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores string values with an expiry.
type Cache interface {
	// Get returns the value for key, or errUtils.ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Key derives a fixed-length cache key from its parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
