// Package repomanager vends remote repositories bound to a dbx.DBTX, so a
// service can use the same repositories on a *sql.DB or inside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/moments/internal/dbx"
	"github.com/dmitrijs2005/moments/internal/remote/repositories/memories"
	"github.com/dmitrijs2005/moments/internal/remote/repositories/photos"
	"github.com/dmitrijs2005/moments/internal/remote/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Memories(db dbx.DBTX) memories.Repository
	Photos(db dbx.DBTX) photos.Repository
}
