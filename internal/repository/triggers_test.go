package repository

import (
	"database/sql"
	"testing"
	"time"

	"sleep-analyzer/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTriggerRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *TriggerRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewTriggerRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestOpenTrigger_Success(t *testing.T) {
	db, mock, repo := setupTriggerRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO analysis_triggers`).
		WithArgs(sqlmock.AnyArg(), "sess-1", "manual", "processing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	triggerID, err := repo.Open("sess-1", models.TriggerManual)

	require.NoError(t, err)
	// 返回的 ID 是合法 UUID
	_, err = uuid.Parse(triggerID)
	assert.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseTrigger_Completed(t *testing.T) {
	db, mock, repo := setupTriggerRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE analysis_triggers`).
		WithArgs("completed", sql.NullString{}, sqlmock.AnyArg(), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Close("sess-1", models.TriggerCompleted, nil)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseTrigger_FailedWithMessage(t *testing.T) {
	db, mock, repo := setupTriggerRepo(t)
	defer db.Close()

	msg := "no sleep samples to analyze"
	mock.ExpectExec(`UPDATE analysis_triggers`).
		WithArgs("failed", sql.NullString{String: msg, Valid: true}, sqlmock.AnyArg(), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Close("sess-1", models.TriggerFailed, &msg)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseTrigger_NoOpenRecordIsBenign(t *testing.T) {
	// 并发关闭竞争：零行生效不是错误
	db, mock, repo := setupTriggerRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE analysis_triggers`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Close("sess-1", models.TriggerCompleted, nil)

	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBySession_Records(t *testing.T) {
	db, mock, repo := setupTriggerRepo(t)
	defer db.Close()

	now := time.Now()
	started := now.UnixMilli()
	rows := sqlmock.NewRows([]string{
		"trigger_id", "session_id", "trigger_kind", "status",
		"error_message", "started_at", "completed_at", "created_at",
	}).
		AddRow("trig-2", "sess-1", "scheduled", "failed", "db timeout", started, started+500, now).
		AddRow("trig-1", "sess-1", "manual", "completed", nil, started, started+900, now)

	mock.ExpectQuery(`FROM analysis_triggers`).
		WithArgs("sess-1").
		WillReturnRows(rows)

	records, err := repo.GetBySession("sess-1")

	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.TriggerScheduled, records[0].Kind)
	assert.Equal(t, models.TriggerFailed, records[0].Status)
	require.NotNil(t, records[0].ErrorMessage)
	assert.Equal(t, "db timeout", *records[0].ErrorMessage)

	assert.Equal(t, models.TriggerCompleted, records[1].Status)
	assert.Nil(t, records[1].ErrorMessage)

	require.NoError(t, mock.ExpectationsWereMet())
}
