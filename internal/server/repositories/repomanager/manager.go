package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/server/repositories/changes"
	"github.com/dmitrijs2005/corund/internal/server/repositories/domains"
	"github.com/dmitrijs2005/corund/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// them against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Changes(db dbx.DBTX) changes.Repository
	Domains(db dbx.DBTX) domains.Repository
}
