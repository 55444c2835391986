// Package checksum computes the content digests used for manifests,
// search-index rows and HTTP validators.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes a digest for use as a strong entity tag.
func ETag(digest string) string {
	return `"` + digest + `"`
}

// MatchETag reports whether an If-None-Match header value matches etag.
// Weak validators compare equal to their strong form.
func MatchETag(header, etag string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		if strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}
