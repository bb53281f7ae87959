package repomanager

import (
	"context"
	"database/sql"

	"github.com/ownyourdata/semcon/internal/dbx"
	"github.com/ownyourdata/semcon/internal/server/repositories/dids"
	"github.com/ownyourdata/semcon/internal/server/repositories/records"
)

// MemoryRepositoryManager vends in-memory repositories. Unlike the Postgres
// manager it holds the repository instances itself, so all callers share the
// same state. Used when no DSN is configured and in tests.
type MemoryRepositoryManager struct {
	records *records.MemoryRepository
	dids    *dids.MemoryRepository
}

func (m *MemoryRepositoryManager) Records(_ dbx.DBTX) records.Repository {
	return m.records
}

func (m *MemoryRepositoryManager) DIDs(_ dbx.DBTX) dids.Repository {
	return m.dids
}

// RunMigrations is a no-op for the in-memory backend.
func (m *MemoryRepositoryManager) RunMigrations(_ context.Context, _ *sql.DB) error {
	return nil
}

// NewMemoryRepositoryManager constructs an in-memory RepositoryManager.
func NewMemoryRepositoryManager() RepositoryManager {
	return &MemoryRepositoryManager{
		records: records.NewMemoryRepository(),
		dids:    dids.NewMemoryRepository(),
	}
}
