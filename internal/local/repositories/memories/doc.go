// Package memories provides the local persistence layer for memories.
//
// # Overview
//
// Repository describes reads and writes of models.Memory rows. The SQLite
// implementation (SQLiteRepository) is bound to a dbx.DBTX, so the same code
// runs on a *sql.DB or inside a *sql.Tx opened by the local store.
//
// # Data Model
//
// A row keeps the calendar day (indexed, used for the same-day merge lookup),
// the note, the ordered photo ids encoded as a JSON array and the creation
// and update timestamps in unix milliseconds.
//
// # Concurrency
//
// Safe for concurrent use when backed by a *sql.DB. When bound to a *sql.Tx
// follow normal transaction scoping rules.
//
// Typical Usage
//
//	repo := memories.NewSQLiteRepository(db)
//	_ = repo.Insert(ctx, m)
//	same, err := repo.GetByDate(ctx, "2024-03-01")
//	all, _ := repo.GetAll(ctx)
//	_ = repo.DeleteByID(ctx, id)
package memories
