package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSequence    = "aligniov/sequence/v1"
	DomainCorrections = "aligniov/corrections/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SequenceDigest computes the content digest of a sequence.
// Two sequences with the same entries in the same order have the same
// digest regardless of map iteration order or how they were built.
func SequenceDigest(seq Sequence) (string, error) {
	canonical, err := MarshalCanonical(seq)
	if err != nil {
		return "", fmt.Errorf("SequenceDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSequence, canonical), nil
}

// CorrectionsDigest computes the content digest of a single payload.
func CorrectionsDigest(c Corrections) (string, error) {
	canonical, err := MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("CorrectionsDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCorrections, canonical), nil
}

// MustSequenceDigest is like SequenceDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSequenceDigest(seq Sequence) string {
	d, err := SequenceDigest(seq)
	if err != nil {
		panic(err)
	}
	return d
}
