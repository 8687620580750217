package repository

import "errors"

var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("sleep session not found")

	// ErrReportNotFound 报告不存在
	ErrReportNotFound = errors.New("analysis report not found")

	// ErrDuplicateReport 违反 (device_id, session_id) 唯一约束
	// 管线将其视为幂等成功，不作为失败上抛
	ErrDuplicateReport = errors.New("analysis report already exists for session")
)
