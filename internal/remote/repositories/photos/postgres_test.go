package photos

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

var photoCols = []string{"id", "memory_id", "original_path", "preview_path", "thumbnail_path",
	"original_url", "preview_url", "thumbnail_url", "mime_type", "file_size", "width", "height",
	"display_order", "created_at"}

func photoRow(rows *sqlmock.Rows, id, memoryID string, order int) *sqlmock.Rows {
	return rows.AddRow(id, memoryID,
		"u/"+memoryID+"/"+id+"/original.jpg", "u/"+memoryID+"/"+id+"/preview.jpg", "u/"+memoryID+"/"+id+"/thumbnail.jpg",
		"http://cdn/o", "http://cdn/p", "http://cdn/t",
		"image/jpeg", int64(1234), 640, 480, order, int64(100))
}

func TestInsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	p := &models.Photo{
		ID: "p-1", MemoryID: "m-1", MimeType: "image/png", FileSize: 9, Width: 3, Height: 2,
		DisplayOrder: 4, CreatedAt: 50,
		Payload: models.RemoteDerivatives{
			OriginalURL: "o-url", PreviewURL: "p-url", ThumbnailURL: "t-url",
			Paths: models.StoragePaths{Original: "o", Preview: "p", Thumbnail: "t"},
		},
	}

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+photos`).
		WithArgs("p-1", "m-1", "u-1", "o", "p", "t", "o-url", "p-url", "t-url",
			"image/png", int64(9), 3, 2, 4, int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), "u-1", p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RejectsLocalPayload(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	err := repo.Insert(context.Background(), "u-1", &models.Photo{ID: "p-1", Payload: models.LocalBlob{Data: []byte{1}}})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestInsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO photos`).WillReturnError(errors.New("boom"))

	err := repo.Insert(context.Background(), "u-1", &models.Photo{ID: "p-1", Payload: models.RemoteDerivatives{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: boom")
}

func TestDeleteByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^DELETE\s+FROM\s+photos\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("p-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p-2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteByID(context.Background(), "p-1"))
	assert.ErrorIs(t, repo.DeleteByID(context.Background(), "p-2"), common.ErrorNotFound)
}

func TestDeleteByMemoryID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+photos\s+WHERE\s+memory_id\s*=\s*\$1$`).
		WithArgs("m-1").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByMemoryID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)FROM\s+photos\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs("p-1").WillReturnRows(photoRow(sqlmock.NewRows(photoCols), "p-1", "m-1", 0))
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.MemoryID)
	assert.Equal(t, 640, got.Width)

	rd, ok := got.Payload.(models.RemoteDerivatives)
	require.True(t, ok)
	assert.Equal(t, "u/m-1/p-1/preview.jpg", rd.Paths.Preview)
	assert.Equal(t, "http://cdn/t", rd.ThumbnailURL)

	_, err = repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByMemoryID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(photoCols)
	photoRow(rows, "p-1", "m-1", 0)
	photoRow(rows, "p-2", "m-1", 1)

	mock.ExpectQuery(`(?s)WHERE\s+memory_id\s*=\s*\$1\s+ORDER\s+BY\s+display_order,\s*created_at,\s*id`).
		WithArgs("m-1").WillReturnRows(rows)

	got, err := repo.GetByMemoryID(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-1", got[0].ID)
	assert.Equal(t, 1, got[1].DisplayOrder)
}

func TestIDsByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+memory_id,\s*id\s+FROM\s+photos\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"memory_id", "id"}).
			AddRow("m-1", "p-1").AddRow("m-1", "p-2").AddRow("m-2", "p-3"))

	got, err := repo.IDsByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"m-1": {"p-1", "p-2"}, "m-2": {"p-3"}}, got)
}

func TestIDsByUser_QueryError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM photos`).WillReturnError(errors.New("down"))

	_, err := repo.IDsByUser(context.Background(), "u-1")
	require.Error(t, err)
}
