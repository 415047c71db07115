package memories

import (
	"context"
	"database/sql"
	"encoding/json"
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

const selectColumns = `select id, date, note, photo_ids, created_at, updated_at from memories`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*models.Memory, error) {
	var (
		m        models.Memory
		photoIDs string
	)
	if err := row.Scan(&m.ID, &m.Date, &m.Note, &photoIDs, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(photoIDs), &m.PhotoIDs); err != nil {
		return nil, fmt.Errorf("failed to decode photo ids of memory %s: %w", m.ID, err)
	}
	if m.PhotoIDs == nil {
		m.PhotoIDs = []string{}
	}
	m.PhotoCount = len(m.PhotoIDs)
	return &m, nil
}

func encodePhotoIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, m *models.Memory) error {
	ids, err := encodePhotoIDs(m.PhotoIDs)
	if err != nil {
		return fmt.Errorf("failed to encode photo ids: %w", err)
	}

	query := `insert into memories (id, date, note, photo_ids, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, m.ID, m.Date, m.Note, ids, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) BulkInsert(ctx context.Context, ms []models.Memory) error {
	for i := range ms {
		if err := r.Insert(ctx, &ms[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, m *models.Memory) error {
	ids, err := encodePhotoIDs(m.PhotoIDs)
	if err != nil {
		return fmt.Errorf("failed to encode photo ids: %w", err)
	}

	query := `update memories set date = ?, note = ?, photo_ids = ?, updated_at = ? where id = ?`
	res, err := r.db.ExecContext(ctx, query, m.Date, m.Note, ids, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}
	return expectOneRow(res, m.ID)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from memories where id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch ra {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("memory %s: %w", id, common.ErrorNotFound)
	default:
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	m, err := scanMemory(r.db.QueryRowContext(ctx, selectColumns+` where id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetByDate(ctx context.Context, date string) (*models.Memory, error) {
	query := selectColumns + ` where date = ? order by created_at, id limit 1`
	m, err := scanMemory(r.db.QueryRowContext(ctx, query, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory on %s: %w", date, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory by date: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Memory, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` order by date desc, created_at desc, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select memories: %w", err)
	}
	defer rows.Close()

	result := []models.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from memories`); err != nil {
		return fmt.Errorf("failed to clear memories: %w", err)
	}
	return nil
}
