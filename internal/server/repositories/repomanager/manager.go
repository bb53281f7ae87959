// Package repomanager wires repository constructors together with the
// storage backend selected at startup, and exposes a migration hook for
// backends that need one.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/ownyourdata/semcon/internal/dbx"
	"github.com/ownyourdata/semcon/internal/server/repositories/dids"
	"github.com/ownyourdata/semcon/internal/server/repositories/records"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	DIDs(db dbx.DBTX) dids.Repository
}
