package dids

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/server/models"
)

// MemoryRepository is the in-process DID store used by tests and DSN-less
// runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	docs   map[string]json.RawMessage
	logs   []*models.LogEntry
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]json.RawMessage), nextID: 1}
}

func (r *MemoryRepository) UpsertDocument(_ context.Context, did string, doc json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(json.RawMessage, len(doc))
	copy(out, doc)
	r.docs[did] = out
	return nil
}

func (r *MemoryRepository) FindDocument(_ context.Context, did string) (*models.DidDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[did]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &models.DidDocument{DID: did, Doc: doc}, nil
}

func (r *MemoryRepository) AppendLog(_ context.Context, entry *models.LogEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.logs {
		if existing.OydHash == entry.OydHash {
			return false, nil
		}
	}

	stored := *entry
	stored.ID = r.nextID
	r.nextID++
	r.logs = append(r.logs, &stored)
	return true, nil
}

func (r *MemoryRepository) LogsForDID(_ context.Context, did string) ([]*models.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.LogEntry
	for _, entry := range r.logs {
		if entry.DID == did {
			copied := *entry
			result = append(result, &copied)
		}
	}
	return result, nil
}
