package domain

import "strings"

// MaxIdempotencyKeyLength bounds client-supplied idempotency keys.
const MaxIdempotencyKeyLength = 128

// NormalizeIdempotencyKey trims the key. It returns nil for a blank key and
// false if the key is too long.
func NormalizeIdempotencyKey(raw string) (*string, bool) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return nil, true
	}
	if len(key) > MaxIdempotencyKeyLength {
		return nil, false
	}
	return &key, true
}

// IdempotencyCacheKey is the fast-path cache key for a payment key.
func IdempotencyCacheKey(key string) string {
	return "payment:" + key
}
