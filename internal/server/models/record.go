// Package models defines the persisted entities of the semantic container.
package models

import "encoding/json"

// Record is a stored item addressed by its content hash.
//
// ID is a surrogate key assigned by the store; it stays stable across
// content updates unless the record is merged away. DRI is the content
// hash of the canonicalized (item, meta) pair and is unique across the
// store at any point in time.
type Record struct {
	ID     int64
	DRI    string
	Item   json.RawMessage
	Meta   json.RawMessage // nil when the record carries no metadata
	Schema string          // "" when no schema was supplied
	DID    string          // "" unless the record is DID-anchored
}

// DidDocument is the identity document anchored on a DID-anchored write.
// DID is the hash of the canonicalized document. Doc carries a "key" field
// used by the authorization gate.
type DidDocument struct {
	DID string
	Doc json.RawMessage
}

// LogEntry is an immutable DID log row. OydHash is the hash of the
// canonicalized entry and acts as the idempotency key: appending an entry
// whose hash already exists is a no-op.
type LogEntry struct {
	ID      int64
	DID     string
	OydHash string
	Item    json.RawMessage
	TS      int64
}
