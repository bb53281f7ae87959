// Package records provides repositories for content-addressed record
// persistence: a PostgreSQL implementation with jsonb containment support
// and an in-memory implementation used by tests and DSN-less runs.
package records

import (
	"context"
	"encoding/json"

	"github.com/ownyourdata/semcon/internal/server/models"
)

// ContainmentQuery filters records by structural JSON containment.
// Data/Meta list key-value pairs the record must contain; DataNot/MetaNot
// list pairs the record must not contain. All groups are conjoined with AND.
type ContainmentQuery struct {
	Data    map[string]any
	Meta    map[string]any
	DataNot map[string]any
	MetaNot map[string]any
}

// Empty reports whether no predicate was supplied.
func (q *ContainmentQuery) Empty() bool {
	return q == nil ||
		(len(q.Data) == 0 && len(q.Meta) == 0 && len(q.DataNot) == 0 && len(q.MetaNot) == 0)
}

// ListFilter narrows a listing. At most one of Schema/Query is set; both
// empty means a full listing.
type ListFilter struct {
	Schema string
	Query  *ContainmentQuery
}

// Page is a 1-based pagination window.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Repository is the persistence port of the content store.
type Repository interface {
	// Upsert inserts rec or, when a record with the same DRI exists,
	// overwrites its item/meta/schema (and did, when set) in place.
	// Returns the surrogate id of the written row.
	Upsert(ctx context.Context, rec *models.Record) (int64, error)

	// UpdateByID overwrites item, meta, schema and dri of an existing row.
	UpdateByID(ctx context.Context, id int64, item, meta json.RawMessage, schema, dri string) error

	FindByDRI(ctx context.Context, dri string) (*models.Record, error)
	FindByID(ctx context.Context, id int64) (*models.Record, error)

	// Delete removes the row; common.ErrNotFound when absent.
	Delete(ctx context.Context, id int64) error

	// List returns one page of records matching filter, ordered by
	// ascending id, along with the total match count.
	List(ctx context.Context, filter ListFilter, page Page) ([]*models.Record, int, error)

	// Schemas returns the distinct non-empty schema values in the store.
	Schemas(ctx context.Context) ([]string, error)
}
