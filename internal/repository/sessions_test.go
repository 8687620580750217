package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupSessionRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SessionRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewSessionRepository(db, zap.NewNop())
	return db, mock, repo
}

var sessionColumns = []string{
	"session_id", "device_id", "start_time", "end_time", "total_time",
	"total_sleep_hours", "is_complete_sleep",
	"time_left", "time_right", "time_center", "position_changes",
}

func TestGetSession_Success(t *testing.T) {
	db, mock, repo := setupSessionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(sessionColumns).AddRow(
		"sess-1", "dev-1", int64(0), int64(28800000), int64(28800000),
		7.5, true, 7200, 10800, 10800, 12,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("sess-1").
		WillReturnRows(rows)

	session, err := repo.GetSession("sess-1")

	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.SessionID)
	assert.Equal(t, "dev-1", session.DeviceID)
	assert.Equal(t, int64(28800000), session.TotalTime)
	require.NotNil(t, session.TotalSleepHours)
	assert.Equal(t, 7.5, *session.TotalSleepHours)
	assert.True(t, session.IsCompleteSleep)
	require.NotNil(t, session.PositionChanges)
	assert.Equal(t, 12, *session.PositionChanges)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession_NullableFields(t *testing.T) {
	db, mock, repo := setupSessionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(sessionColumns).AddRow(
		"sess-2", "dev-1", int64(0), int64(1000), int64(1000),
		nil, false, nil, nil, nil, nil,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("sess-2").
		WillReturnRows(rows)

	session, err := repo.GetSession("sess-2")

	require.NoError(t, err)
	assert.Nil(t, session.TotalSleepHours)
	assert.Nil(t, session.TimeLeft)
	assert.Nil(t, session.PositionChanges)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession_NotFound(t *testing.T) {
	db, mock, repo := setupSessionRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	session, err := repo.GetSession("missing")

	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSamples_Success(t *testing.T) {
	db, mock, repo := setupSessionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"device_id", "ts", "stage",
		"temperature", "humidity", "co2", "pm25", "light", "noise",
		"heart_rate", "body_temperature", "spo2",
	}).
		AddRow("dev-1", int64(1000), 2, 21.0, nil, nil, nil, nil, nil, 62.0, nil, 97.0).
		AddRow("dev-1", int64(2000), nil, nil, nil, nil, nil, nil, nil, 65.0, nil, nil)

	mock.ExpectQuery(`SELECT`).
		WithArgs("dev-1", int64(0), int64(28800000)).
		WillReturnRows(rows)

	samples, err := repo.GetSamples("dev-1", 0, 28800000)

	require.NoError(t, err)
	require.Len(t, samples, 2)

	require.NotNil(t, samples[0].Stage)
	assert.Equal(t, 2, *samples[0].Stage)
	require.NotNil(t, samples[0].HeartRate)
	assert.Equal(t, 62.0, *samples[0].HeartRate)
	assert.Nil(t, samples[0].Humidity)

	assert.Nil(t, samples[1].Stage)
	assert.Nil(t, samples[1].SpO2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSamples_EmptyWindow(t *testing.T) {
	db, mock, repo := setupSessionRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("dev-1", int64(0), int64(1000)).
		WillReturnRows(sqlmock.NewRows([]string{
			"device_id", "ts", "stage",
			"temperature", "humidity", "co2", "pm25", "light", "noise",
			"heart_rate", "body_temperature", "spo2",
		}))

	samples, err := repo.GetSamples("dev-1", 0, 1000)

	require.NoError(t, err)
	assert.Empty(t, samples)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUnprocessed_Success(t *testing.T) {
	db, mock, repo := setupSessionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(sessionColumns).
		AddRow("sess-9", "dev-2", int64(100), int64(200), int64(100),
			nil, true, nil, nil, nil, nil)

	mock.ExpectQuery(`LEFT JOIN sleep_analysis_reports`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 10).
		WillReturnRows(rows)

	sessions, err := repo.FindUnprocessed(5*time.Minute, 24*time.Hour, 10)

	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-9", sessions[0].SessionID)

	require.NoError(t, mock.ExpectationsWereMet())
}
