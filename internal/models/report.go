package models

import "time"

// AggregatedMetrics 会话样本窗口的聚合指标
// 某通道在窗口内全部缺失时对应字段为 nil，不合成零值
type AggregatedMetrics struct {
	// 生理指标
	AvgHeartRate *float64 `json:"avg_heart_rate,omitempty"`
	MinHeartRate *float64 `json:"min_heart_rate,omitempty"`
	MaxHeartRate *float64 `json:"max_heart_rate,omitempty"`
	AvgSpO2      *float64 `json:"avg_spo2,omitempty"`
	MinSpO2      *float64 `json:"min_spo2,omitempty"`
	AvgBodyTemp  *float64 `json:"avg_body_temp,omitempty"`

	// 环境指标
	AvgEnvTemp  *float64 `json:"avg_env_temp,omitempty"`
	AvgHumidity *float64 `json:"avg_humidity,omitempty"`
	AvgCO2      *float64 `json:"avg_co2,omitempty"`
	AvgPM25     *float64 `json:"avg_pm25,omitempty"`
	AvgLight    *float64 `json:"avg_light,omitempty"`
	AvgNoise    *float64 `json:"avg_noise,omitempty"`

	// 睡眠阶段分布（占全部样本的百分比）
	LightSleepPercent *float64 `json:"light_sleep_percent,omitempty"`
	DeepSleepPercent  *float64 `json:"deep_sleep_percent,omitempty"`
	NearWakePercent   *float64 `json:"near_wake_percent,omitempty"`

	TotalSamples int `json:"total_samples"`
}

// QualityLevel 质量等级（overallScore 的阶梯函数）
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent" // >= 80
	QualityGood      QualityLevel = "good"      // >= 65
	QualityFair      QualityLevel = "fair"      // >= 50
	QualityPoor      QualityLevel = "poor"
)

// QualityScores 质量评分（均在 [0,100] 内）
type QualityScores struct {
	SleepEfficiency  float64      `json:"sleep_efficiency"`
	EnvironmentScore float64      `json:"environment_score"`
	PhysiologyScore  float64      `json:"physiology_score"`
	OverallScore     float64      `json:"overall_score"`
	QualityLevel     QualityLevel `json:"quality_level"`
}

// AnalysisReport 一次会话的分析报告
// (device_id, session_id) 唯一；narrative/recommendations 可在重新生成时覆盖，
// 其余字段创建后不可变
type AnalysisReport struct {
	ReportID   string `json:"report_id"`
	DeviceID   string `json:"device_id"`
	SessionID  string `json:"session_id"`
	ReportDate string `json:"report_date"` // YYYY-MM-DD（按会话开始时间）

	// 会话元数据快照
	TotalSleepHours *float64 `json:"total_sleep_hours,omitempty"`
	IsCompleteSleep bool     `json:"is_complete_sleep"`
	TimeLeft        *int     `json:"time_left,omitempty"`
	TimeRight       *int     `json:"time_right,omitempty"`
	TimeCenter      *int     `json:"time_center,omitempty"`
	PositionChanges *int     `json:"position_changes,omitempty"`

	Metrics AggregatedMetrics `json:"metrics"`
	Scores  QualityScores     `json:"scores"`

	Narrative       string   `json:"narrative"`
	Recommendations []string `json:"recommendations"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 列表查询时联表带出的会话时间（便于前端展示）
	SessionStart int64 `json:"session_start,omitempty"`
	SessionEnd   int64 `json:"session_end,omitempty"`
}

// TriggerKind 触发来源
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"    // HTTP 手动触发
	TriggerAutomatic TriggerKind = "automatic" // MQTT 会话结束事件
	TriggerScheduled TriggerKind = "scheduled" // 轮询发现
)

// TriggerStatus 分析尝试状态
type TriggerStatus string

const (
	TriggerPending    TriggerStatus = "pending"
	TriggerProcessing TriggerStatus = "processing"
	TriggerCompleted  TriggerStatus = "completed"
	TriggerFailed     TriggerStatus = "failed"
)

// TriggerRecord 一次分析尝试的台账记录
// 同一会话可因重试积累多条记录；"未完成"过滤决定轮询再发现资格
type TriggerRecord struct {
	TriggerID    string        `json:"trigger_id"`
	SessionID    string        `json:"session_id"`
	Kind         TriggerKind   `json:"trigger_kind"`
	Status       TriggerStatus `json:"status"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	StartedAt    *int64        `json:"started_at,omitempty"`   // 毫秒
	CompletedAt  *int64        `json:"completed_at,omitempty"` // 毫秒
	CreatedAt    time.Time     `json:"created_at"`
}
