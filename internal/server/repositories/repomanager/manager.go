package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/taglink/internal/dbx"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/audit"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/links"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Links(db dbx.DBTX) links.Repository
	Audit(db dbx.DBTX) audit.Repository
	Accounts(db dbx.DBTX) accounts.Repository
}
