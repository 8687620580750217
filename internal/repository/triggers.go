package repository

import (
	"database/sql"
	"fmt"
	"time"

	"sleep-analyzer/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerRepository 分析尝试台账仓库
type TriggerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTriggerRepository 创建台账仓库
func NewTriggerRepository(db *sql.DB, logger *zap.Logger) *TriggerRepository {
	return &TriggerRepository{
		db:     db,
		logger: logger,
	}
}

// Open 为一次分析尝试插入 processing 记录，返回记录 ID
func (r *TriggerRepository) Open(sessionID string, kind models.TriggerKind) (string, error) {
	query := `
		INSERT INTO analysis_triggers (
			trigger_id, session_id, trigger_kind, status, started_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	triggerID := uuid.NewString()
	_, err := r.db.Exec(query,
		triggerID,
		sessionID,
		string(kind),
		string(models.TriggerProcessing),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert trigger record: %w", err)
	}

	return triggerID, nil
}

// Close 把该会话最近一条未完成记录更新为终态
// 没有未完成记录时零行生效，按良性空操作处理（并发关闭可能竞争）
func (r *TriggerRepository) Close(sessionID string, status models.TriggerStatus, errorMessage *string) error {
	query := `
		UPDATE analysis_triggers
		SET status = $1,
			error_message = $2,
			completed_at = $3
		WHERE trigger_id = (
			SELECT trigger_id FROM analysis_triggers
			WHERE session_id = $4
				AND status != 'completed'
			ORDER BY created_at DESC
			LIMIT 1
		)
	`

	result, err := r.db.Exec(query,
		string(status),
		nullString(errorMessage),
		time.Now().UnixMilli(),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to close trigger record: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		r.logger.Debug("No open trigger record to close",
			zap.String("session_id", sessionID),
			zap.String("status", string(status)),
		)
	}

	return nil
}

// GetBySession 读取某会话的全部尝试记录，新的在前（审计用）
func (r *TriggerRepository) GetBySession(sessionID string) ([]models.TriggerRecord, error) {
	query := `
		SELECT trigger_id, session_id, trigger_kind, status,
			error_message, started_at, completed_at, created_at
		FROM analysis_triggers
		WHERE session_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger records: %w", err)
	}
	defer rows.Close()

	var records []models.TriggerRecord
	for rows.Next() {
		var rec models.TriggerRecord
		var kind, status string
		var errorMessage sql.NullString
		var startedAt, completedAt sql.NullInt64

		err := rows.Scan(
			&rec.TriggerID,
			&rec.SessionID,
			&kind,
			&status,
			&errorMessage,
			&startedAt,
			&completedAt,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger record: %w", err)
		}

		rec.Kind = models.TriggerKind(kind)
		rec.Status = models.TriggerStatus(status)
		rec.ErrorMessage = stringPtr(errorMessage)
		rec.StartedAt = int64Ptr(startedAt)
		rec.CompletedAt = int64Ptr(completedAt)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trigger records: %w", err)
	}

	return records, nil
}
