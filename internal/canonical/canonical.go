// Package canonical produces deterministic serializations and content
// identifiers for JSON-like values. All DRIs, DIDs and log hashes in the
// container are derived here, regardless of which storage backend holds
// the data.
package canonical

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"github.com/mr-tron/base58"
)

// multihash prefix for a sha2-256 digest: code 0x12, length 0x20.
var multihashPrefix = []byte{0x12, 0x20}

// Canonicalize serializes v into RFC 8785 canonical JSON. Two values that
// are JSON-equivalent up to object key order canonicalize identically.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// Hash digests canonical bytes with sha2-256 and encodes the multihash as
// multibase base58btc (leading "z"). The scheme is fixed; the same logical
// content always yields the same token.
func Hash(canonical []byte) string {
	digest := sha256.Sum256(canonical)
	return "z" + base58.Encode(append(multihashPrefix, digest[:]...))
}

// HashValue canonicalizes v and hashes the result in one step.
func HashValue(v any) (string, error) {
	c, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return Hash(c), nil
}
