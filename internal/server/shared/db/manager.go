// Package db wires the catalog database: connection, migrations and
// repository construction behind one manager.
package db

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/imgvault/internal/dbx"
	"github.com/dmitrijs2005/imgvault/internal/server/repositories/images"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Images() images.Repository
	// ImagesOn builds a repository bound to a transaction handle for
	// multi-statement folder operations.
	ImagesOn(dbx.DBTX) images.Repository
	Close() error
}
