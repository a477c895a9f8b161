package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashing.
// Version suffix enables future algorithm migration without silent
// fingerprint collisions across schemes.
const (
	DomainFingerprint = "driftwatch/fingerprint/v1"
	DomainSeed        = "driftwatch/seed/v1"
	DomainResult      = "driftwatch/result/v1"
)

// Hash computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical canonically marshals v and hashes it under the given domain.
func HashCanonical(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("HashCanonical: %w", err)
	}
	return Hash(domain, canonical), nil
}
