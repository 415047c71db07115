package memories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var memoryCols = []string{"id", "date", "note", "photo_count", "created_at", "updated_at"}

func TestInsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+memories\s*\(id,\s*user_id,\s*date,\s*note,\s*photo_count,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*$`

	mock.ExpectExec(q).
		WithArgs("m-1", "u-1", "2024-05-01", "hello", 0, int64(10), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := &models.Memory{ID: "m-1", Date: "2024-05-01", Note: "hello", CreatedAt: 10, UpdatedAt: 10}
	if err := repo.Insert(context.Background(), "u-1", m); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO memories`).WillReturnError(errors.New("boom"))

	err := repo.Insert(context.Background(), "u-1", &models.Memory{ID: "m-1"})
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+memories\s+SET\s+date\s*=\s*\$1,\s*note\s*=\s*\$2,\s*updated_at\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$4\s*$`

	mock.ExpectExec(q).
		WithArgs("2024-05-02", "edited", int64(20), "m-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs("2024-05-02", "edited", int64(20), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	m := &models.Memory{ID: "m-1", Date: "2024-05-02", Note: "edited", UpdatedAt: 20}
	if err := repo.Update(context.Background(), m); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	m.ID = "missing"
	if err := repo.Update(context.Background(), m); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDeleteByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+memories\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("m-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("m-2").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByID(context.Background(), "m-1"); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if err := repo.DeleteByID(context.Background(), "m-2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*date::text,\s*note,\s*photo_count,\s*created_at,\s*updated_at\s+FROM\s+memories\s+WHERE\s+id\s*=\s*\$1$`

	mock.ExpectQuery(q).WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows(memoryCols).AddRow("m-1", "2024-05-01", "n", 2, int64(1), int64(2)))
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Date != "2024-05-01" || got.PhotoCount != 2 || got.UpdatedAt != 2 {
		t.Fatalf("unexpected memory: %+v", got)
	}

	if _, err := repo.GetByID(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByDate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+memories\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+date\s*=\s*\$2\s+ORDER\s+BY\s+created_at,\s*id\s+LIMIT\s+1`

	mock.ExpectQuery(q).WithArgs("u-1", "2024-05-01").
		WillReturnRows(sqlmock.NewRows(memoryCols).AddRow("m-1", "2024-05-01", "", 0, int64(1), int64(1)))

	got, err := repo.GetByDate(context.Background(), "u-1", "2024-05-01")
	if err != nil {
		t.Fatalf("GetByDate error: %v", err)
	}
	if got.ID != "m-1" {
		t.Fatalf("unexpected memory: %+v", got)
	}
}

func TestGetAll(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+memories\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+date\s+DESC,\s*created_at\s+DESC,\s*id`

	mock.ExpectQuery(q).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(memoryCols).
			AddRow("m-2", "2024-05-02", "b", 1, int64(2), int64(2)).
			AddRow("m-1", "2024-05-01", "a", 0, int64(1), int64(1)))

	got, err := repo.GetAll(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m-2" || got[1].ID != "m-1" {
		t.Fatalf("unexpected memories: %+v", got)
	}

	mock.ExpectQuery(q).WithArgs("u-2").WillReturnRows(sqlmock.NewRows(memoryCols))
	empty, err := repo.GetAll(context.Background(), "u-2")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v, %v", empty, err)
	}
}

func TestGetAll_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM memories`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m-1"))

	if _, err := repo.GetAll(context.Background(), "u-1"); err == nil {
		t.Fatal("expected scan error")
	}
}

func TestAdjustPhotoCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+memories\s+SET\s+photo_count\s*=\s*GREATEST\(photo_count\s*\+\s*\$1,\s*0\)\s+WHERE\s+id\s*=\s*\$2\s*$`

	mock.ExpectExec(q).WithArgs(-1, "m-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(1, "gone").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.AdjustPhotoCount(context.Background(), "m-1", -1); err != nil {
		t.Fatalf("AdjustPhotoCount error: %v", err)
	}
	if err := repo.AdjustPhotoCount(context.Background(), "gone", 1); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
