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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const photoColumns = `id, memory_id, original_path, preview_path, thumbnail_path,
	original_url, preview_url, thumbnail_url, mime_type, file_size, width, height,
	display_order, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s scanner) (*models.Photo, error) {
	var (
		p  models.Photo
		rd models.RemoteDerivatives
	)
	err := s.Scan(&p.ID, &p.MemoryID,
		&rd.Paths.Original, &rd.Paths.Preview, &rd.Paths.Thumbnail,
		&rd.OriginalURL, &rd.PreviewURL, &rd.ThumbnailURL,
		&p.MimeType, &p.FileSize, &p.Width, &p.Height, &p.DisplayOrder, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Payload = rd
	return &p, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, userID string, p *models.Photo) error {
	rd, ok := p.Payload.(models.RemoteDerivatives)
	if !ok {
		return fmt.Errorf("%w: photo %s has no remote derivatives", common.ErrorValidation, p.ID)
	}

	query :=
		`INSERT INTO photos (id, memory_id, user_id, original_path, preview_path, thumbnail_path,
		 original_url, preview_url, thumbnail_url, mime_type, file_size, width, height,
		 display_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 `

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.MemoryID, userID,
		rd.Paths.Original, rd.Paths.Preview, rd.Paths.Thumbnail,
		rd.OriginalURL, rd.PreviewURL, rd.ThumbnailURL,
		p.MimeType, p.FileSize, p.Width, p.Height, p.DisplayOrder, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByMemoryID(ctx context.Context, memoryID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE memory_id = $1`, memoryID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	p, err := scanPhoto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByMemoryID(ctx context.Context, memoryID string) ([]models.Photo, error) {
	query :=
		`SELECT ` + photoColumns + ` FROM photos
		 WHERE memory_id = $1
		 ORDER BY display_order, created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, memoryID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) IDsByUser(ctx context.Context, userID string) (map[string][]string, error) {
	query :=
		`SELECT memory_id, id FROM photos
		 WHERE user_id = $1
		 ORDER BY memory_id, display_order, created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var memoryID, id string
		if err := rows.Scan(&memoryID, &id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[memoryID] = append(result[memoryID], id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
