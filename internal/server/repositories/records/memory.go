package records

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/server/models"
)

// MemoryRepository is an in-process Repository used by tests and by
// DSN-less development runs. Containment predicates are evaluated
// structurally, matching the semantics of the jsonb @> operator.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*models.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, rows: make(map[int64]*models.Record)}
}

func (r *MemoryRepository) Upsert(_ context.Context, rec *models.Record) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.DRI == rec.DRI {
			row.Item = clone(rec.Item)
			row.Meta = clone(rec.Meta)
			row.Schema = rec.Schema
			if rec.DID != "" {
				row.DID = rec.DID
			}
			return row.ID, nil
		}
	}

	row := &models.Record{
		ID:     r.nextID,
		DRI:    rec.DRI,
		Item:   clone(rec.Item),
		Meta:   clone(rec.Meta),
		Schema: rec.Schema,
		DID:    rec.DID,
	}
	r.rows[row.ID] = row
	r.nextID++
	return row.ID, nil
}

func (r *MemoryRepository) UpdateByID(_ context.Context, id int64, item, meta json.RawMessage, schema, dri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return common.ErrNotFound
	}
	row.Item = clone(item)
	row.Meta = clone(meta)
	row.Schema = schema
	row.DRI = dri
	return nil
}

func (r *MemoryRepository) FindByDRI(_ context.Context, dri string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows {
		if row.DRI == dri {
			return copyRecord(row), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyRecord(row), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter, page Page) ([]*models.Record, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Record
	for _, row := range r.rows {
		ok, err := matches(row, filter)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			matched = append(matched, copyRecord(row))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	start := page.offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if page.Size <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) Schemas(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, row := range r.rows {
		if row.Schema != "" {
			seen[row.Schema] = struct{}{}
		}
	}
	result := make([]string, 0, len(seen))
	for s := range seen {
		result = append(result, s)
	}
	sort.Strings(result)
	return result, nil
}

func matches(row *models.Record, filter ListFilter) (bool, error) {
	if filter.Schema != "" && row.Schema != filter.Schema {
		return false, nil
	}
	q := filter.Query
	if q.Empty() {
		return true, nil
	}

	item, err := decode(row.Item)
	if err != nil {
		return false, err
	}
	meta, err := decode(row.Meta)
	if err != nil {
		return false, err
	}

	if len(q.Data) > 0 && !containsAll(item, q.Data) {
		return false, nil
	}
	if len(q.Meta) > 0 && !containsAll(meta, q.Meta) {
		return false, nil
	}
	if len(q.DataNot) > 0 && containsAll(item, q.DataNot) {
		return false, nil
	}
	if len(q.MetaNot) > 0 && containsAll(meta, q.MetaNot) {
		return false, nil
	}
	return true, nil
}

func decode(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func copyRecord(row *models.Record) *models.Record {
	return &models.Record{
		ID:     row.ID,
		DRI:    row.DRI,
		Item:   clone(row.Item),
		Meta:   clone(row.Meta),
		Schema: row.Schema,
		DID:    row.DID,
	}
}
