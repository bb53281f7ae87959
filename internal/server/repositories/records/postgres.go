package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/dbx"
	"github.com/ownyourdata/semcon/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX
// (*sql.DB or *sql.Tx). Item and meta live in jsonb columns so containment
// queries compile to the @> operator.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) (int64, error) {
	query := `
		INSERT INTO stores (dri, item, meta, schema, did)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (dri)
		DO UPDATE SET
			item = EXCLUDED.item,
			meta = EXCLUDED.meta,
			schema = EXCLUDED.schema,
			did = COALESCE(EXCLUDED.did, stores.did),
			updated_at = now()
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.DRI, []byte(rec.Item), nullableJSON(rec.Meta), rec.Schema, rec.DID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert record: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) UpdateByID(ctx context.Context, id int64, item, meta json.RawMessage, schema, dri string) error {
	query := `
		UPDATE stores
		SET item = $2, meta = $3, schema = NULLIF($4, ''), dri = $5, updated_at = now()
		WHERE id = $1;
	`
	res, err := r.db.ExecContext(ctx, query, id, []byte(item), nullableJSON(meta), schema, dri)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindByDRI(ctx context.Context, dri string) (*models.Record, error) {
	return r.findOne(ctx, `WHERE dri = $1`, dri)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Record, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*models.Record, error) {
	query := `SELECT id, dri, item, meta, COALESCE(schema, ''), COALESCE(did, '') FROM stores ` + where
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter, page Page) ([]*models.Record, int, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM stores` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	// Size <= 0 means an unbounded page, same as the in-memory repository.
	limit := "ALL"
	if page.Size > 0 {
		limit = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, page.Size)
	}
	listQuery := fmt.Sprintf(
		`SELECT id, dri, item, meta, COALESCE(schema, ''), COALESCE(did, '') FROM stores%s ORDER BY id ASC LIMIT %s OFFSET $%d`,
		where, limit, len(args)+1)
	args = append(args, page.offset())

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *PostgresRepository) Schemas(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT schema FROM stores WHERE schema IS NOT NULL AND schema <> '' ORDER BY schema`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// buildWhere renders filter into a WHERE clause. Containment predicates
// compile to jsonb @> / NOT @> against the item and meta columns.
func buildWhere(filter ListFilter) (string, []any, error) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Schema != "" {
		add(`schema = $%d`, filter.Schema)
	}

	if q := filter.Query; !q.Empty() {
		appendContainment := func(column string, pairs map[string]any, negate bool) error {
			if len(pairs) == 0 {
				return nil
			}
			encoded, err := json.Marshal(pairs)
			if err != nil {
				return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
			}
			if negate {
				// COALESCE keeps rows whose column is NULL: a record
				// without meta cannot contain the excluded pairs.
				add(`NOT COALESCE(`+column+` @> $%d::jsonb, false)`, string(encoded))
			} else {
				add(column+` @> $%d::jsonb`, string(encoded))
			}
			return nil
		}
		if err := appendContainment("item", q.Data, false); err != nil {
			return "", nil, err
		}
		if err := appendContainment("meta", q.Meta, false); err != nil {
			return "", nil, err
		}
		if err := appendContainment("item", q.DataNot, true); err != nil {
			return "", nil, err
		}
		if err := appendContainment("meta", q.MetaNot, true); err != nil {
			return "", nil, err
		}
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var item []byte
	var meta []byte
	if err := row.Scan(&rec.ID, &rec.DRI, &item, &meta, &rec.Schema, &rec.DID); err != nil {
		return nil, err
	}
	rec.Item = json.RawMessage(item)
	if meta != nil {
		rec.Meta = json.RawMessage(meta)
	}
	return &rec, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
