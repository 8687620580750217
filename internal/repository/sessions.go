package repository

import (
	"database/sql"
	"fmt"
	"time"

	"sleep-analyzer/internal/models"

	"go.uber.org/zap"
)

// SessionRepository 睡眠会话/样本仓库（协作方数据，本服务只读）
type SessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *sql.DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// GetSession 根据会话 ID 读取会话摘要
func (r *SessionRepository) GetSession(sessionID string) (*models.SleepSession, error) {
	query := `
		SELECT
			session_id, device_id, start_time, end_time, total_time,
			total_sleep_hours, is_complete_sleep,
			time_left, time_right, time_center, position_changes
		FROM sleep_sessions
		WHERE session_id = $1
	`

	var session models.SleepSession
	var totalSleepHours sql.NullFloat64
	var timeLeft, timeRight, timeCenter, positionChanges sql.NullInt64

	err := r.db.QueryRow(query, sessionID).Scan(
		&session.SessionID,
		&session.DeviceID,
		&session.StartTime,
		&session.EndTime,
		&session.TotalTime,
		&totalSleepHours,
		&session.IsCompleteSleep,
		&timeLeft,
		&timeRight,
		&timeCenter,
		&positionChanges,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to query sleep session: %w", err)
	}

	session.TotalSleepHours = floatPtr(totalSleepHours)
	session.TimeLeft = intFromNull(timeLeft)
	session.TimeRight = intFromNull(timeRight)
	session.TimeCenter = intFromNull(timeCenter)
	session.PositionChanges = intFromNull(positionChanges)

	return &session, nil
}

// GetSamples 读取设备在 [startTime, endTime] 窗口内的样本，按时间戳升序
func (r *SessionRepository) GetSamples(deviceID string, startTime, endTime int64) ([]models.SleepSample, error) {
	query := `
		SELECT
			device_id, ts, stage,
			temperature, humidity, co2, pm25, light, noise,
			heart_rate, body_temperature, spo2
		FROM sleep_samples
		WHERE device_id = $1
			AND ts BETWEEN $2 AND $3
		ORDER BY ts ASC
	`

	rows, err := r.db.Query(query, deviceID, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query sleep samples: %w", err)
	}
	defer rows.Close()

	var samples []models.SleepSample
	for rows.Next() {
		var s models.SleepSample
		var stage sql.NullInt64
		var temperature, humidity, co2, pm25, light, noise sql.NullFloat64
		var heartRate, bodyTemperature, spo2 sql.NullFloat64

		err := rows.Scan(
			&s.DeviceID,
			&s.Timestamp,
			&stage,
			&temperature,
			&humidity,
			&co2,
			&pm25,
			&light,
			&noise,
			&heartRate,
			&bodyTemperature,
			&spo2,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sleep sample: %w", err)
		}

		s.Stage = intFromNull(stage)
		s.Temperature = floatPtr(temperature)
		s.Humidity = floatPtr(humidity)
		s.CO2 = floatPtr(co2)
		s.PM25 = floatPtr(pm25)
		s.Light = floatPtr(light)
		s.Noise = floatPtr(noise)
		s.HeartRate = floatPtr(heartRate)
		s.BodyTemperature = floatPtr(bodyTemperature)
		s.SpO2 = floatPtr(spo2)

		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sleep samples: %w", err)
	}

	return samples, nil
}

// FindUnprocessed 发现可分析的会话：
// 没有已存在的报告、结束时间早于宽限期、开始时间落在回看窗口内，
// 按结束时间倒序，限制批量大小
func (r *SessionRepository) FindUnprocessed(grace, lookback time.Duration, limit int) ([]models.SleepSession, error) {
	query := `
		SELECT
			s.session_id, s.device_id, s.start_time, s.end_time, s.total_time,
			s.total_sleep_hours, s.is_complete_sleep,
			s.time_left, s.time_right, s.time_center, s.position_changes
		FROM sleep_sessions s
		LEFT JOIN sleep_analysis_reports r ON s.session_id = r.session_id
		WHERE r.report_id IS NULL
			AND s.end_time < $1
			AND s.start_time > $2
		ORDER BY s.end_time DESC
		LIMIT $3
	`

	now := time.Now().UnixMilli()
	rows, err := r.db.Query(query,
		now-grace.Milliseconds(),
		now-lookback.Milliseconds(),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SleepSession
	for rows.Next() {
		var session models.SleepSession
		var totalSleepHours sql.NullFloat64
		var timeLeft, timeRight, timeCenter, positionChanges sql.NullInt64

		err := rows.Scan(
			&session.SessionID,
			&session.DeviceID,
			&session.StartTime,
			&session.EndTime,
			&session.TotalTime,
			&totalSleepHours,
			&session.IsCompleteSleep,
			&timeLeft,
			&timeRight,
			&timeCenter,
			&positionChanges,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		session.TotalSleepHours = floatPtr(totalSleepHours)
		session.TimeLeft = intFromNull(timeLeft)
		session.TimeRight = intFromNull(timeRight)
		session.TimeCenter = intFromNull(timeCenter)
		session.PositionChanges = intFromNull(positionChanges)

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}
