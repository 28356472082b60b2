// Package repomanager vends the registry repositories and applies the
// database schema.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/havengate/internal/dbx"
	"github.com/dmitrijs2005/havengate/internal/server/repositories/claims"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Claims(db dbx.DBTX) claims.Repository
}
