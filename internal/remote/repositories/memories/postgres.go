package memories

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

const memoryColumns = `id, date::text, note, photo_count, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, userID string, m *models.Memory) error {
	query :=
		`INSERT INTO memories (id, user_id, date, note, photo_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query, m.ID, userID, m.Date, m.Note, m.PhotoCount, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, m *models.Memory) error {
	query :=
		`UPDATE memories SET date = $1, note = $2, updated_at = $3
		 WHERE id = $4
		 `

	res, err := r.db.ExecContext(ctx, query, m.Date, m.Note, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectRow(res)
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectRow(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByDate returns the earliest-created memory of the user on date.
func (r *PostgresRepository) GetByDate(ctx context.Context, userID, date string) (*models.Memory, error) {
	query :=
		`SELECT ` + memoryColumns + ` FROM memories
		 WHERE user_id = $1 AND date = $2
		 ORDER BY created_at, id
		 LIMIT 1
		 `
	return r.getOne(ctx, query, userID, date)
}

// GetAll returns the user's memories, newest date first.
func (r *PostgresRepository) GetAll(ctx context.Context, userID string) ([]models.Memory, error) {
	query :=
		`SELECT ` + memoryColumns + ` FROM memories
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC, id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Memory, 0)
	for rows.Next() {
		var m models.Memory
		if err := rows.Scan(&m.ID, &m.Date, &m.Note, &m.PhotoCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// AdjustPhotoCount adds delta to the cached photo count, never going below zero.
func (r *PostgresRepository) AdjustPhotoCount(ctx context.Context, id string, delta int) error {
	query :=
		`UPDATE memories SET photo_count = GREATEST(photo_count + $1, 0)
		 WHERE id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectRow(res)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Memory, error) {
	m := &models.Memory{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&m.ID, &m.Date, &m.Note, &m.PhotoCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
