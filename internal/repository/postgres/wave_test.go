package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/wave"
)

func TestMarkRunningConditionalOnPending(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE send_waves").
		WithArgs(string(domain.WaveRunning), 5, "wave-1", string(domain.WavePending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewWaveRepo(db)
	if err := repo.MarkRunning(context.Background(), "wave-1", 5); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkRunningRejectsNonPending(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// Zero rows affected: the wave was not PENDING (or does not exist).
	mock.ExpectExec("UPDATE send_waves").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewWaveRepo(db)
	err := repo.MarkRunning(context.Background(), "wave-1", 5)
	if !errors.Is(err, wave.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestGetWaveNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM send_waves").
		WillReturnError(sql.ErrNoRows)

	repo := NewWaveRepo(db)
	_, err := repo.GetWave(context.Background(), "missing")
	if !errors.Is(err, wave.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
