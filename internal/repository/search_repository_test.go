package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"pai-search-go/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestSearchRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSearchRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `searches`")).
		WithArgs("id-1", "what is go", "Go is a language.", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.SearchRecord{ID: "id-1", Query: "what is go", Answer: "Go is a language."})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepository_CreateIgnoresDuplicateID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSearchRepository(db)

	// MySQL 方言下 DoNothing 会生成 ON DUPLICATE KEY UPDATE `id`=`id`
	mock.ExpectExec(`INSERT INTO .searches.*ON DUPLICATE KEY UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &model.SearchRecord{ID: "id-1", Query: "q", Answer: "a"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepository_CreateError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSearchRepository(db)

	mock.ExpectExec("INSERT INTO").WillReturnError(assert.AnError)

	err := repo.Create(context.Background(), &model.SearchRecord{ID: "id-1", Query: "q", Answer: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSearchRepository_ListRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSearchRepository(db)

	now := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"id", "query", "created_at"}).
		AddRow("b", "newer", now).
		AddRow("a", "older", now.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`,`query`,`created_at` FROM `searches` ORDER BY created_at DESC,id DESC LIMIT ?")).
		WithArgs(5).
		WillReturnRows(rows)

	records, err := repo.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newer", records[0].Query)
	assert.Equal(t, "", records[0].Answer)
	assert.NoError(t, mock.ExpectationsWereMet())
}
