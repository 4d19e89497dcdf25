package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for comparison and cache keying: trimmed,
// lowercased, trailing slash removed
func Normalize(rawURL string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(rawURL)), "/")
}

// Hostname extracts the lowercased hostname of a URL, or "" if it cannot
// be parsed
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// IsWebScheme reports whether the URL uses a network-addressable scheme.
// Everything that is not plain http/https (chrome://, about:, file:, data:)
// is outside what the system will verify.
func IsWebScheme(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// CacheKey derives a stable cache key for a URL from the sha256 digest of
// its normalized form
func CacheKey(prefix string, rawURL string) string {
	digest := sha256.Sum256([]byte(Normalize(rawURL)))
	return prefix + hex.EncodeToString(digest[:])
}
