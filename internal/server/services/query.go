package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ownyourdata/semcon/internal/logging"
	"github.com/ownyourdata/semcon/internal/server/models"
	"github.com/ownyourdata/semcon/internal/server/repositories/records"
	"github.com/ownyourdata/semcon/internal/server/repositories/repomanager"
)

// Projection modes for read responses.
const (
	FormatPlain = "plain"
	FormatMeta  = "meta"
	FormatFull  = "full"
)

// DefaultPageSize bounds listings when the caller names no page size.
const DefaultPageSize = 20

// ReadAuthorizer decides whether a resolved record may leave the server.
// A nil authorizer allows everything.
type ReadAuthorizer func(ctx context.Context, rec *models.Record) error

// ReadParams select records and shape the response. Resolution precedence:
// DRI, then ID, then Schema, then Query, then a full listing. A Schema or
// Query selection always yields an array, even for a single hit.
type ReadParams struct {
	DRI    string
	ID     int64
	Schema string
	Query  *records.ContainmentQuery

	Format string // plain | meta | full (default full)

	Page     int
	PageSize int
	All      bool // page=all: one page holding the entire result

	// Authorize runs against every resolved record, locator hits and
	// listing rows alike, before any payload is shaped.
	Authorize ReadAuthorizer
}

func (p ReadParams) authorize(ctx context.Context, rec *models.Record) error {
	if p.Authorize == nil {
		return nil
	}
	return p.Authorize(ctx, rec)
}

// PageInfo is the pagination metadata of a multi-record response.
type PageInfo struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	PageItems   int
}

// ReadResult carries either one shaped record or a shaped page. Page is
// nil for single-record responses.
type ReadResult struct {
	Single json.RawMessage
	Many   []json.RawMessage
	Page   *PageInfo
}

type QueryService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

func NewQueryService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *QueryService {
	return &QueryService{db: db, rm: rm, logger: logger}
}

// Read resolves params against the store. Locator reads (dri, id) return a
// single shaped record; everything else returns a page. Every resolved
// record clears params.Authorize before it is shaped, so a rejected record
// fails the whole read rather than leaking through a listing.
func (s *QueryService) Read(ctx context.Context, params ReadParams) (*ReadResult, error) {
	repo := s.rm.Records(s.db)

	switch {
	case params.DRI != "":
		rec, err := repo.FindByDRI(ctx, params.DRI)
		if err != nil {
			return nil, err
		}
		if err := params.authorize(ctx, rec); err != nil {
			return nil, err
		}
		return s.single(rec, params.Format)

	case params.ID != 0:
		rec, err := repo.FindByID(ctx, params.ID)
		if err != nil {
			return nil, err
		}
		if err := params.authorize(ctx, rec); err != nil {
			return nil, err
		}
		return s.single(rec, params.Format)

	case params.Schema != "":
		return s.page(ctx, records.ListFilter{Schema: params.Schema}, params)

	case !params.Query.Empty():
		return s.page(ctx, records.ListFilter{Query: params.Query}, params)

	default:
		return s.page(ctx, records.ListFilter{}, params)
	}
}

// Schemas lists the distinct schema values known to the store.
func (s *QueryService) Schemas(ctx context.Context) ([]string, error) {
	return s.rm.Records(s.db).Schemas(ctx)
}

func (s *QueryService) single(rec *models.Record, format string) (*ReadResult, error) {
	shaped, err := shapeRecord(rec, format)
	if err != nil {
		return nil, err
	}
	return &ReadResult{Single: shaped}, nil
}

func (s *QueryService) page(ctx context.Context, filter records.ListFilter, params ReadParams) (*ReadResult, error) {
	page := records.Page{Number: params.Page, Size: params.PageSize}
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = DefaultPageSize
	}
	if params.All {
		page = records.Page{Number: 1, Size: 0}
	}

	rows, total, err := s.rm.Records(s.db).List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	shaped := make([]json.RawMessage, 0, len(rows))
	for _, rec := range rows {
		if err := params.authorize(ctx, rec); err != nil {
			return nil, err
		}
		out, err := shapeRecord(rec, params.Format)
		if err != nil {
			return nil, err
		}
		shaped = append(shaped, out)
	}

	info := &PageInfo{
		CurrentPage: page.Number,
		TotalCount:  total,
		PageItems:   len(shaped),
	}
	if params.All || total == 0 {
		info.TotalPages = 1
	} else {
		info.TotalPages = (total + page.Size - 1) / page.Size
	}
	return &ReadResult{Many: shaped, Page: info}, nil
}

// shapeRecord projects one record per the format parameter: plain unwraps
// the item, meta drops it, full returns identity plus item plus meta with
// the schema folded into meta.schema when meta lacked it.
func shapeRecord(rec *models.Record, format string) (json.RawMessage, error) {
	switch format {
	case FormatPlain:
		return rec.Item, nil

	case FormatMeta:
		out := map[string]any{"id": rec.ID, "dri": rec.DRI}
		meta, err := metaWithSchema(rec)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			out["meta"] = json.RawMessage(meta)
		}
		return json.Marshal(out)

	default:
		out := map[string]any{"id": rec.ID, "dri": rec.DRI, "data": rec.Item}
		meta, err := metaWithSchema(rec)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			out["meta"] = json.RawMessage(meta)
		}
		return json.Marshal(out)
	}
}

// metaWithSchema folds the schema column back into the meta payload.
func metaWithSchema(rec *models.Record) (json.RawMessage, error) {
	if rec.Schema == "" {
		return rec.Meta, nil
	}

	metaObj := map[string]json.RawMessage{}
	if len(rec.Meta) > 0 {
		if err := json.Unmarshal(rec.Meta, &metaObj); err != nil {
			// Non-object meta cannot absorb the schema; hand it back as is.
			return rec.Meta, nil
		}
	}
	if _, ok := metaObj["schema"]; !ok {
		schema, err := json.Marshal(rec.Schema)
		if err != nil {
			return nil, err
		}
		metaObj["schema"] = schema
	}
	return json.Marshal(metaObj)
}
