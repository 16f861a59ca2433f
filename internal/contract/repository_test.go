package contract

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGORMRepository(db), mock
}

// Both compare-and-set updates and the re-read share one transaction.
func TestAccept_SingleTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "contracts" SET "accepted_by_to_at"=.*WHERE id = .* AND accepted_by_to_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "contracts" SET "activated_at"=.*"status"=.*WHERE id = .* AND status = .* AND accepted_by_from_at IS NOT NULL AND accepted_by_to_at IS NOT NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "contracts" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "accepted_by_from_at", "accepted_by_to_at"}).
			AddRow(id, StatusActive, at, at))
	mock.ExpectCommit()

	res, err := repo.Accept(context.Background(), id, SideTo, at)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.True(t, res.Activated)
	assert.Equal(t, StatusActive, res.Contract.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "contracts" SET "accepted_by_from_at"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "contracts" SET "activated_at"=`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), id, SideFrom, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
