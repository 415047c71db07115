package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/dbx"
	"github.com/dmitrijs2005/moments/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `select id, memory_id, blob, mime_type, created_at, display_order, width, height from photos`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var (
		p    models.Photo
		blob []byte
	)
	if err := row.Scan(&p.ID, &p.MemoryID, &blob, &p.MimeType, &p.CreatedAt, &p.DisplayOrder, &p.Width, &p.Height); err != nil {
		return nil, err
	}
	p.FileSize = int64(len(blob))
	p.Payload = models.LocalBlob{Data: blob}
	return &p, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, p *models.Photo) error {
	blob, ok := p.Payload.(models.LocalBlob)
	if !ok {
		return fmt.Errorf("photo %s: local store keeps only blob payloads", p.ID)
	}

	query := `insert into photos (id, memory_id, blob, mime_type, created_at, display_order, width, height)
			values (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.MemoryID, blob.Data, p.MimeType, p.CreatedAt, p.DisplayOrder, p.Width, p.Height)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) BulkInsert(ctx context.Context, ps []models.Photo) error {
	for i := range ps {
		if err := r.Insert(ctx, &ps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from photos where id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("photo %s: %w", id, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByMemoryID(ctx context.Context, memoryID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from photos where memory_id = ?`, memoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete photos of memory: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	p, err := scanPhoto(r.db.QueryRowContext(ctx, selectColumns+` where id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("photo %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByMemoryID(ctx context.Context, memoryID string) ([]models.Photo, error) {
	query := selectColumns + ` where memory_id = ? order by display_order, created_at, id`
	return r.list(ctx, query, memoryID)
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Photo, error) {
	return r.list(ctx, selectColumns+` order by memory_id, display_order, created_at, id`)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Photo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	result := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from photos`); err != nil {
		return fmt.Errorf("failed to clear photos: %w", err)
	}
	return nil
}
