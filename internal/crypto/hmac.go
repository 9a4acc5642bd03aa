// Package crypto provides request canonicalization, HMAC authentication, and
// encrypted secret storage for the exchange API.
package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
)

// Field is one key/value pair of a request in canonical order. The order of
// the slice passed to a Canonicalizer is the order the server re-derives, so
// callers must build it deterministically.
type Field struct {
	Key   string
	Value string
}

// Canonicalizer produces the single deterministic byte form of a request
// that is signed client-side and re-derived server-side. The exact form is
// exchange-specific; LATOKEN expects a query-string style body.
type Canonicalizer interface {
	Canonicalize(fields []Field) string
}

// QueryCanonicalizer renders fields as "key=value&key=value" with no
// escaping or whitespace, matching what LATOKEN re-derives when verifying
// signatures.
type QueryCanonicalizer struct{}

// Canonicalize implements Canonicalizer.
func (QueryCanonicalizer) Canonicalize(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+"="+f.Value)
	}
	return strings.Join(parts, "&")
}

// HMACAuth holds the API credentials for HMAC-authenticated requests. It is
// constructed once at startup and shared read-only; Secret is never logged
// or serialized.
type HMACAuth struct {
	Key    string
	Secret []byte
}

// Sign computes hex(HMAC-SHA512(secret, method+path+canonicalBody)). The
// same inputs always yield the same digest.
func (h *HMACAuth) Sign(method, path, canonicalBody string) string {
	mac := hmac.New(sha512.New, h.Secret)
	mac.Write([]byte(method + path + canonicalBody))
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers for a signed request:
//
//   - X-LA-APIKEY: the API key identifier
//   - X-LA-SIGNATURE: hex HMAC-SHA512 over method+path+canonicalBody
//   - X-LA-DIGEST: the digest algorithm name
func (h *HMACAuth) Headers(method, path, canonicalBody string) map[string]string {
	return map[string]string{
		"X-LA-APIKEY":    h.Key,
		"X-LA-SIGNATURE": h.Sign(method, path, canonicalBody),
		"X-LA-DIGEST":    "HMAC-SHA512",
	}
}

// Configured reports whether both credential halves are present.
func (h *HMACAuth) Configured() bool {
	return h != nil && h.Key != "" && len(h.Secret) > 0
}

// String returns a redacted representation safe for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=****(%d bytes)}", redact(h.Key), len(h.Secret))
}
