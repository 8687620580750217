package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"sleep-analyzer/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// pq 唯一约束冲突错误码
const pqUniqueViolation = "23505"

// reportColumns 报告查询的列清单（与 scanReport 一一对应）
const reportColumns = `
	report_id, device_id, session_id, report_date,
	total_sleep_hours, is_complete_sleep,
	time_left, time_right, time_center, position_changes,
	avg_heart_rate, min_heart_rate, max_heart_rate,
	avg_spo2, min_spo2, avg_body_temp,
	avg_env_temp, avg_humidity, avg_co2, avg_pm25, avg_light, avg_noise,
	light_sleep_percent, deep_sleep_percent, near_wake_percent, total_samples,
	sleep_efficiency, environment_score, physiology_score, overall_score, quality_level,
	ai_analysis, recommendations, created_at, updated_at`

// ReportRepository 分析报告仓库
// (device_id, session_id) 唯一约束由数据库保证
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository 创建报告仓库
func NewReportRepository(db *sql.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Save 插入分析报告
// 唯一约束冲突返回 ErrDuplicateReport，调用方按幂等成功处理（或走重新生成路径）
func (r *ReportRepository) Save(report *models.AnalysisReport) error {
	query := `
		INSERT INTO sleep_analysis_reports (
			report_id, device_id, session_id, report_date,
			total_sleep_hours, is_complete_sleep,
			time_left, time_right, time_center, position_changes,
			avg_heart_rate, min_heart_rate, max_heart_rate,
			avg_spo2, min_spo2, avg_body_temp,
			avg_env_temp, avg_humidity, avg_co2, avg_pm25, avg_light, avg_noise,
			light_sleep_percent, deep_sleep_percent, near_wake_percent, total_samples,
			sleep_efficiency, environment_score, physiology_score, overall_score, quality_level,
			ai_analysis, recommendations, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, NOW(), NOW()
		)
	`

	recommendationsJSON, err := json.Marshal(report.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	m := &report.Metrics
	s := &report.Scores

	_, err = r.db.Exec(query,
		report.ReportID,
		report.DeviceID,
		report.SessionID,
		report.ReportDate,
		nullFloat(report.TotalSleepHours),
		report.IsCompleteSleep,
		nullInt(report.TimeLeft),
		nullInt(report.TimeRight),
		nullInt(report.TimeCenter),
		nullInt(report.PositionChanges),
		nullFloat(m.AvgHeartRate),
		nullFloat(m.MinHeartRate),
		nullFloat(m.MaxHeartRate),
		nullFloat(m.AvgSpO2),
		nullFloat(m.MinSpO2),
		nullFloat(m.AvgBodyTemp),
		nullFloat(m.AvgEnvTemp),
		nullFloat(m.AvgHumidity),
		nullFloat(m.AvgCO2),
		nullFloat(m.AvgPM25),
		nullFloat(m.AvgLight),
		nullFloat(m.AvgNoise),
		nullFloat(m.LightSleepPercent),
		nullFloat(m.DeepSleepPercent),
		nullFloat(m.NearWakePercent),
		m.TotalSamples,
		s.SleepEfficiency,
		s.EnvironmentScore,
		s.PhysiologyScore,
		s.OverallScore,
		string(s.QualityLevel),
		report.Narrative,
		recommendationsJSON,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: session %s", ErrDuplicateReport, report.SessionID)
		}
		return fmt.Errorf("failed to insert analysis report: %w", err)
	}

	return nil
}

// GetBySession 按会话 ID 读取报告
func (r *ReportRepository) GetBySession(sessionID string) (*models.AnalysisReport, error) {
	query := `SELECT` + reportColumns + `
		FROM sleep_analysis_reports
		WHERE session_id = $1`

	report, err := scanReport(r.db.QueryRow(query, sessionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: session %s", ErrReportNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to query analysis report: %w", err)
	}

	return report, nil
}

// GetLatest 读取全局最新创建的报告
func (r *ReportRepository) GetLatest() (*models.AnalysisReport, error) {
	query := `SELECT` + reportColumns + `
		FROM sleep_analysis_reports
		ORDER BY created_at DESC
		LIMIT 1`

	report, err := scanReport(r.db.QueryRow(query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to query latest report: %w", err)
	}

	return report, nil
}

// GetByDevice 读取某设备最近的报告，联表带出会话起止时间，新的在前
func (r *ReportRepository) GetByDevice(deviceID string, limit int) ([]*models.AnalysisReport, error) {
	query := `
		SELECT
			r.report_id, r.device_id, r.session_id, r.report_date,
			r.total_sleep_hours, r.is_complete_sleep,
			r.time_left, r.time_right, r.time_center, r.position_changes,
			r.avg_heart_rate, r.min_heart_rate, r.max_heart_rate,
			r.avg_spo2, r.min_spo2, r.avg_body_temp,
			r.avg_env_temp, r.avg_humidity, r.avg_co2, r.avg_pm25, r.avg_light, r.avg_noise,
			r.light_sleep_percent, r.deep_sleep_percent, r.near_wake_percent, r.total_samples,
			r.sleep_efficiency, r.environment_score, r.physiology_score, r.overall_score, r.quality_level,
			r.ai_analysis, r.recommendations, r.created_at, r.updated_at,
			s.start_time, s.end_time
		FROM sleep_analysis_reports r
		JOIN sleep_sessions s ON r.session_id = s.session_id
		WHERE r.device_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query device reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.AnalysisReport
	for rows.Next() {
		report, err := scanReportRow(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device reports: %w", err)
	}

	return reports, nil
}

// UpdateNarrative 重新生成路径：只更新叙述字段和 updated_at，
// 数值指标/评分保持不变
func (r *ReportRepository) UpdateNarrative(sessionID, narrative string, recommendations []string) error {
	query := `
		UPDATE sleep_analysis_reports
		SET ai_analysis = $1,
			recommendations = $2,
			updated_at = NOW()
		WHERE session_id = $3
	`

	recommendationsJSON, err := json.Marshal(recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	result, err := r.db.Exec(query, narrative, recommendationsJSON, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update narrative: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: session %s", ErrReportNotFound, sessionID)
	}

	return nil
}

// rowScanner QueryRow / Rows 共用的扫描接口
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.AnalysisReport, error) {
	return scanReportRow(row, false)
}

// scanReportRow 扫描一行报告
// withSessionTimes 为 true 时行尾多出 s.start_time / s.end_time 两列
func scanReportRow(row rowScanner, withSessionTimes bool) (*models.AnalysisReport, error) {
	var report models.AnalysisReport
	var totalSleepHours sql.NullFloat64
	var timeLeft, timeRight, timeCenter, positionChanges sql.NullInt64
	var avgHR, minHR, maxHR, avgSpO2, minSpO2, avgBodyTemp sql.NullFloat64
	var avgEnvTemp, avgHumidity, avgCO2, avgPM25, avgLight, avgNoise sql.NullFloat64
	var lightPct, deepPct, nearWakePct sql.NullFloat64
	var qualityLevel string
	var recommendationsJSON []byte

	dest := []any{
		&report.ReportID,
		&report.DeviceID,
		&report.SessionID,
		&report.ReportDate,
		&totalSleepHours,
		&report.IsCompleteSleep,
		&timeLeft,
		&timeRight,
		&timeCenter,
		&positionChanges,
		&avgHR, &minHR, &maxHR,
		&avgSpO2, &minSpO2, &avgBodyTemp,
		&avgEnvTemp, &avgHumidity, &avgCO2, &avgPM25, &avgLight, &avgNoise,
		&lightPct, &deepPct, &nearWakePct,
		&report.Metrics.TotalSamples,
		&report.Scores.SleepEfficiency,
		&report.Scores.EnvironmentScore,
		&report.Scores.PhysiologyScore,
		&report.Scores.OverallScore,
		&qualityLevel,
		&report.Narrative,
		&recommendationsJSON,
		&report.CreatedAt,
		&report.UpdatedAt,
	}
	if withSessionTimes {
		dest = append(dest, &report.SessionStart, &report.SessionEnd)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	report.TotalSleepHours = floatPtr(totalSleepHours)
	report.TimeLeft = intFromNull(timeLeft)
	report.TimeRight = intFromNull(timeRight)
	report.TimeCenter = intFromNull(timeCenter)
	report.PositionChanges = intFromNull(positionChanges)

	report.Metrics.AvgHeartRate = floatPtr(avgHR)
	report.Metrics.MinHeartRate = floatPtr(minHR)
	report.Metrics.MaxHeartRate = floatPtr(maxHR)
	report.Metrics.AvgSpO2 = floatPtr(avgSpO2)
	report.Metrics.MinSpO2 = floatPtr(minSpO2)
	report.Metrics.AvgBodyTemp = floatPtr(avgBodyTemp)
	report.Metrics.AvgEnvTemp = floatPtr(avgEnvTemp)
	report.Metrics.AvgHumidity = floatPtr(avgHumidity)
	report.Metrics.AvgCO2 = floatPtr(avgCO2)
	report.Metrics.AvgPM25 = floatPtr(avgPM25)
	report.Metrics.AvgLight = floatPtr(avgLight)
	report.Metrics.AvgNoise = floatPtr(avgNoise)
	report.Metrics.LightSleepPercent = floatPtr(lightPct)
	report.Metrics.DeepSleepPercent = floatPtr(deepPct)
	report.Metrics.NearWakePercent = floatPtr(nearWakePct)

	report.Scores.QualityLevel = models.QualityLevel(qualityLevel)

	// 存储的 recommendations 必须反序列化后再返回给调用方
	report.Recommendations = []string{}
	if len(recommendationsJSON) > 0 {
		if err := json.Unmarshal(recommendationsJSON, &report.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
	}

	return &report, nil
}
