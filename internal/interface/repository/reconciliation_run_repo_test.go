package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormReconciliationRunRepository_Save(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewGormReconciliationRunRepository(db)

	started := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	report := &entity.ReconciliationReport{
		RunID:        "run-1",
		StartedAt:    started,
		FinishedAt:   started.Add(time.Minute),
		Candidates:   3,
		Transitioned: 1,
		Unchanged:    1,
		Failed:       1,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "reconciliation_runs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReconciliationRunRepository_FindRecent(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewGormReconciliationRunRepository(db)

	started := time.Date(2026, 10, 1, 6, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "reconciliation_runs" ORDER BY started_at desc LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "started_at", "finished_at", "candidates", "transitioned", "unchanged", "failed", "skipped", "aborted", "created_at"}).
			AddRow(2, "run-2", started, started.Add(time.Minute), 4, 2, 1, 1, 0, false, started).
			AddRow(1, "run-1", started.Add(-6*time.Hour), started.Add(-6*time.Hour), 0, 0, 0, 0, 0, false, started))

	reports, err := repo.FindRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "run-2", reports[0].RunID)
	assert.Equal(t, 4, reports[0].Candidates)
	assert.Equal(t, 2, reports[0].Transitioned)
	assert.Equal(t, "run-1", reports[1].RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoopReconciliationRunRepository(t *testing.T) {
	var repo NoopReconciliationRunRepository
	require.NoError(t, repo.Save(context.Background(), &entity.ReconciliationReport{}))

	reports, err := repo.FindRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, reports)
}
