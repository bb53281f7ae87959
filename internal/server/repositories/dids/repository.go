// Package dids provides repositories for DID documents and their
// hash-chained log entries.
package dids

import (
	"context"
	"encoding/json"

	"github.com/ownyourdata/semcon/internal/server/models"
)

// Repository is the persistence port of the DID log chain.
type Repository interface {
	// UpsertDocument creates the document row for did, or overwrites its
	// doc when the row already exists.
	UpsertDocument(ctx context.Context, did string, doc json.RawMessage) error

	// FindDocument returns common.ErrNotFound when the did is unknown.
	FindDocument(ctx context.Context, did string) (*models.DidDocument, error)

	// AppendLog inserts entry unless a log row with the same oyd_hash
	// already exists. Returns true when a row was inserted.
	AppendLog(ctx context.Context, entry *models.LogEntry) (bool, error)

	// LogsForDID returns the log entries of a DID ordered by id.
	LogsForDID(ctx context.Context, did string) ([]*models.LogEntry, error)
}
