// Package services implements the container's write, update, delete and
// read operations on top of the repository layer. Content identifiers are
// computed here, once, via the canonical package; repositories only ever
// see finished DRIs.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ownyourdata/semcon/internal/canonical"
	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/dbx"
	"github.com/ownyourdata/semcon/internal/logging"
	"github.com/ownyourdata/semcon/internal/server/envelope"
	"github.com/ownyourdata/semcon/internal/server/models"
	"github.com/ownyourdata/semcon/internal/server/repositories/repomanager"
)

// RecordRef identifies a stored record by content hash and surrogate id.
type RecordRef struct {
	DRI string `json:"dri"`
	ID  int64  `json:"id"`
}

// WriteResult is the outcome of a write. Exactly one of Ref/DID is set:
// DID-anchored writes report the anchored identifier instead of the record.
type WriteResult struct {
	Ref *RecordRef
	DID string
}

// UpdateResult reports where the updated content now lives. Removed is set
// only when the update collided with another record and the originally
// resolved record was merged away.
type UpdateResult struct {
	DRI     string     `json:"dri"`
	ID      int64      `json:"id"`
	Removed *RecordRef `json:"removed,omitempty"`
}

// Locator resolves a record by DRI when DRI is non-empty, by ID otherwise.
type Locator struct {
	ID  int64
	DRI string
}

type StoreService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

func NewStoreService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *StoreService {
	return &StoreService{db: db, rm: rm, logger: logger}
}

// inTx runs fn inside a transaction when backed by SQL. The in-memory
// manager has no transactional handle, so fn runs directly.
func (s *StoreService) inTx(ctx context.Context, fn func(ctx context.Context, db dbx.DBTX) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, s.db, nil, fn)
}

// ComputeDRI derives the content address of an (item, meta) pair. With
// metadata present the hash covers {"data": item, "meta": meta}; without
// it the item is hashed alone.
func ComputeDRI(item, meta json.RawMessage) (string, error) {
	if len(meta) > 0 {
		return canonical.HashValue(map[string]json.RawMessage{
			"data": item,
			"meta": meta,
		})
	}
	return canonical.HashValue(item)
}

// Write persists a normalized envelope. Identical content lands on the
// existing row (same id, same dri); novel content inserts a new row.
// DID-anchored envelopes additionally run the DID log chain and report
// the anchored identifier.
func (s *StoreService) Write(ctx context.Context, env *envelope.Envelope) (*WriteResult, error) {
	dri, err := ComputeDRI(env.Item, env.Meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	rec := &models.Record{
		DRI:    dri,
		Item:   env.Item,
		Meta:   env.Meta,
		Schema: env.Schema,
	}

	if env.Kind != envelope.KindDidAnchored {
		id, err := s.rm.Records(s.db).Upsert(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("write record: %w", err)
		}
		return &WriteResult{Ref: &RecordRef{DRI: dri, ID: id}}, nil
	}

	did, err := s.anchorDID(ctx, env)
	if err != nil {
		return nil, err
	}
	rec.DID = did
	if _, err := s.rm.Records(s.db).Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("write record: %w", err)
	}
	return &WriteResult{DID: didIdentifier(did, env.DidDocument)}, nil
}

// anchorDID upserts the DID document and appends the supplied log entries,
// skipping entries whose hash is already present.
func (s *StoreService) anchorDID(ctx context.Context, env *envelope.Envelope) (string, error) {
	did, err := canonical.HashValue(env.DidDocument)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	repo := s.rm.DIDs(s.db)
	if err := repo.UpsertDocument(ctx, did, env.DidDocument); err != nil {
		return "", fmt.Errorf("upsert did document: %w", err)
	}

	for _, entry := range env.DidLog {
		oydHash, err := canonical.HashValue(entry)
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
		inserted, err := repo.AppendLog(ctx, &models.LogEntry{
			DID:     did,
			OydHash: oydHash,
			Item:    entry,
			TS:      entryTimestamp(entry),
		})
		if err != nil {
			return "", fmt.Errorf("append log: %w", err)
		}
		if !inserted {
			s.logger.Debug(ctx, "log entry already present", "did", did, "oyd_hash", oydHash)
		}
	}
	return did, nil
}

// didIdentifier renders the DID-anchored write response: the did plus the
// last @-segment of the document's log pointer, when one is declared.
func didIdentifier(did string, doc json.RawMessage) string {
	id := common.DIDMethodPrefix + did

	var fields struct {
		Log string `json:"log"`
	}
	if err := json.Unmarshal(doc, &fields); err != nil || fields.Log == "" {
		return id
	}
	segments := strings.Split(fields.Log, common.LocationPrefix)
	pointer := segments[len(segments)-1]
	if pointer == "" {
		return id
	}
	return id + common.LocationPrefix + pointer
}

// entryTimestamp takes the entry's own ts field when it carries one.
func entryTimestamp(entry json.RawMessage) int64 {
	var fields struct {
		TS int64 `json:"ts"`
	}
	if err := json.Unmarshal(entry, &fields); err == nil && fields.TS > 0 {
		return fields.TS
	}
	return time.Now().Unix()
}

// Update rewrites the content of the record resolved by loc. When the new
// content's DRI is already owned by a different record, the content merges
// into that record and the resolved one is deleted; Removed then carries
// the identity the caller lost.
func (s *StoreService) Update(ctx context.Context, loc Locator, env *envelope.Envelope) (*UpdateResult, error) {
	repo := s.rm.Records(s.db)

	current, err := s.resolve(ctx, loc)
	if err != nil {
		return nil, err
	}

	newDRI, err := ComputeDRI(env.Item, env.Meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	if newDRI != current.DRI {
		other, err := repo.FindByDRI(ctx, newDRI)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("check collision: %w", err)
		}
		if err == nil && other.ID != current.ID {
			// Content collision: the new content already lives elsewhere.
			// Merge into the owning record and drop the resolved one so
			// at most one record carries any given dri. Both mutations
			// land in one transaction on the SQL backend.
			err := s.inTx(ctx, func(ctx context.Context, db dbx.DBTX) error {
				txRepo := s.rm.Records(db)
				if err := txRepo.UpdateByID(ctx, other.ID, env.Item, env.Meta, env.Schema, newDRI); err != nil {
					return fmt.Errorf("merge record: %w", err)
				}
				if err := txRepo.Delete(ctx, current.ID); err != nil {
					return fmt.Errorf("remove merged record: %w", err)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			s.logger.Info(ctx, "update merged colliding records",
				"kept_id", other.ID, "removed_id", current.ID)
			return &UpdateResult{
				DRI:     newDRI,
				ID:      other.ID,
				Removed: &RecordRef{DRI: current.DRI, ID: current.ID},
			}, nil
		}
	}

	if err := repo.UpdateByID(ctx, current.ID, env.Item, env.Meta, env.Schema, newDRI); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	return &UpdateResult{DRI: newDRI, ID: current.ID}, nil
}

// Delete removes the record resolved by loc and returns its identity.
func (s *StoreService) Delete(ctx context.Context, loc Locator) (*RecordRef, error) {
	current, err := s.resolve(ctx, loc)
	if err != nil {
		return nil, err
	}
	if err := s.rm.Records(s.db).Delete(ctx, current.ID); err != nil {
		return nil, fmt.Errorf("delete record: %w", err)
	}
	return &RecordRef{DRI: current.DRI, ID: current.ID}, nil
}

func (s *StoreService) resolve(ctx context.Context, loc Locator) (*models.Record, error) {
	if loc.DRI != "" {
		return s.rm.Records(s.db).FindByDRI(ctx, loc.DRI)
	}
	return s.rm.Records(s.db).FindByID(ctx, loc.ID)
}
