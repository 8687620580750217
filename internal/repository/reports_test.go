package repository

import (
	"database/sql"
	"testing"
	"time"

	"sleep-analyzer/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupReportRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ReportRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewReportRepository(db, zap.NewNop())
	return db, mock, repo
}

func f64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int         { return &v }

func testReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		ReportID:        "report-1",
		DeviceID:        "dev-1",
		SessionID:       "sess-1",
		ReportDate:      "2024-08-27",
		IsCompleteSleep: true,
		PositionChanges: intPtr(12),
		Metrics: models.AggregatedMetrics{
			AvgHeartRate: f64Ptr(70),
			MinHeartRate: f64Ptr(60),
			MaxHeartRate: f64Ptr(80),
			TotalSamples: 3,
		},
		Scores: models.QualityScores{
			SleepEfficiency:  90.9,
			EnvironmentScore: 100,
			PhysiologyScore:  100,
			OverallScore:     88.4,
			QualityLevel:     models.QualityExcellent,
		},
		Narrative:       "Good sleep.",
		Recommendations: []string{"Keep the room cool."},
	}
}

func TestSaveReport_Success(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sleep_analysis_reports`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(testReport())

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport_DuplicateViolation(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sleep_analysis_reports`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	err := repo.Save(testReport())

	assert.ErrorIs(t, err, ErrDuplicateReport)
	require.NoError(t, mock.ExpectationsWereMet())
}

var reportColumnNames = []string{
	"report_id", "device_id", "session_id", "report_date",
	"total_sleep_hours", "is_complete_sleep",
	"time_left", "time_right", "time_center", "position_changes",
	"avg_heart_rate", "min_heart_rate", "max_heart_rate",
	"avg_spo2", "min_spo2", "avg_body_temp",
	"avg_env_temp", "avg_humidity", "avg_co2", "avg_pm25", "avg_light", "avg_noise",
	"light_sleep_percent", "deep_sleep_percent", "near_wake_percent", "total_samples",
	"sleep_efficiency", "environment_score", "physiology_score", "overall_score", "quality_level",
	"ai_analysis", "recommendations", "created_at", "updated_at",
}

func addReportRow(rows *sqlmock.Rows) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		"report-1", "dev-1", "sess-1", "2024-08-27",
		7.5, true,
		nil, nil, nil, 12,
		70.0, 60.0, 80.0,
		nil, nil, nil,
		nil, nil, nil, nil, nil, nil,
		nil, nil, nil, 3,
		90.9, 100.0, 100.0, 88.4, "excellent",
		"Good sleep.", []byte(`["Keep the room cool."]`), now, now,
	)
}

func TestGetBySession_Success(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	rows := addReportRow(sqlmock.NewRows(reportColumnNames))

	mock.ExpectQuery(`FROM sleep_analysis_reports`).
		WithArgs("sess-1").
		WillReturnRows(rows)

	report, err := repo.GetBySession("sess-1")

	require.NoError(t, err)
	assert.Equal(t, "report-1", report.ReportID)
	assert.Equal(t, "sess-1", report.SessionID)
	require.NotNil(t, report.Metrics.AvgHeartRate)
	assert.Equal(t, 70.0, *report.Metrics.AvgHeartRate)
	assert.Nil(t, report.Metrics.AvgSpO2)
	assert.Equal(t, models.QualityExcellent, report.Scores.QualityLevel)
	// recommendations 必须反序列化成字符串列表
	assert.Equal(t, []string{"Keep the room cool."}, report.Recommendations)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBySession_NotFound(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sleep_analysis_reports`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	report, err := repo.GetBySession("missing")

	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrReportNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatest_Success(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	rows := addReportRow(sqlmock.NewRows(reportColumnNames))

	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WillReturnRows(rows)

	report, err := repo.GetLatest()

	require.NoError(t, err)
	assert.Equal(t, "report-1", report.ReportID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatest_Empty(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetLatest()
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestGetByDevice_JoinsSessionTimes(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	columns := append(append([]string{}, reportColumnNames...), "start_time", "end_time")
	now := time.Now()
	rows := sqlmock.NewRows(columns).AddRow(
		"report-1", "dev-1", "sess-1", "2024-08-27",
		7.5, true,
		nil, nil, nil, 12,
		70.0, 60.0, 80.0,
		nil, nil, nil,
		nil, nil, nil, nil, nil, nil,
		nil, nil, nil, 3,
		90.9, 100.0, 100.0, 88.4, "excellent",
		"Good sleep.", []byte(`[]`), now, now,
		int64(0), int64(28800000),
	)

	mock.ExpectQuery(`JOIN sleep_sessions`).
		WithArgs("dev-1", 10).
		WillReturnRows(rows)

	reports, err := repo.GetByDevice("dev-1", 10)

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(0), reports[0].SessionStart)
	assert.Equal(t, int64(28800000), reports[0].SessionEnd)
	assert.Empty(t, reports[0].Recommendations)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNarrative_OnlyNarrativeFields(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE sleep_analysis_reports`).
		WithArgs("New narrative.", []byte(`["New tip for better sleep."]`), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateNarrative("sess-1", "New narrative.", []string{"New tip for better sleep."})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNarrative_NoReport(t *testing.T) {
	db, mock, repo := setupReportRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE sleep_analysis_reports`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateNarrative("missing", "text", nil)

	assert.ErrorIs(t, err, ErrReportNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
