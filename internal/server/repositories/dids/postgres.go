package dids

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/dbx"
	"github.com/ownyourdata/semcon/internal/server/models"
)

// PostgresRepository implements DID storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) UpsertDocument(ctx context.Context, did string, doc json.RawMessage) error {
	query := `
		INSERT INTO dids (did, doc)
		VALUES ($1, $2)
		ON CONFLICT (did)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now();
	`
	if _, err := r.db.ExecContext(ctx, query, did, []byte(doc)); err != nil {
		return fmt.Errorf("upsert did document: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindDocument(ctx context.Context, did string) (*models.DidDocument, error) {
	var doc models.DidDocument
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT did, doc FROM dids WHERE did = $1`, did).
		Scan(&doc.DID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find did document: %w", err)
	}
	doc.Doc = json.RawMessage(raw)
	return &doc, nil
}

// AppendLog relies on the unique index on oyd_hash: a conflicting insert
// is skipped, which makes retried writes produce no duplicate rows.
func (r *PostgresRepository) AppendLog(ctx context.Context, entry *models.LogEntry) (bool, error) {
	query := `
		INSERT INTO logs (did, item, oyd_hash, ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (oyd_hash) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query, entry.DID, []byte(entry.Item), entry.OydHash, entry.TS)
	if err != nil {
		return false, fmt.Errorf("append log entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) LogsForDID(ctx context.Context, did string) ([]*models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, did, item, oyd_hash, ts FROM logs WHERE did = $1 ORDER BY id ASC`, did)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()

	var result []*models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		var item []byte
		if err := rows.Scan(&entry.ID, &entry.DID, &item, &entry.OydHash, &entry.TS); err != nil {
			return nil, err
		}
		entry.Item = json.RawMessage(item)
		result = append(result, &entry)
	}
	return result, rows.Err()
}
