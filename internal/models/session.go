package models

// 睡眠阶段（设备协议定义的枚举值）
const (
	StageLightSleep = 1 // 浅睡
	StageDeepSleep  = 2 // 深睡
	StageNearWake   = 3 // 将醒
)

// SleepSession 一次完整的睡眠会话（由设备摄入服务写入，本服务只读）
// 时间戳均为毫秒 Unix 时间
type SleepSession struct {
	SessionID       string   `json:"session_id"`
	DeviceID        string   `json:"device_id"`
	StartTime       int64    `json:"start_time"`
	EndTime         int64    `json:"end_time"`
	TotalTime       int64    `json:"total_time"` // 总时长（毫秒）
	TotalSleepHours *float64 `json:"total_sleep_hours,omitempty"`
	IsCompleteSleep bool     `json:"is_complete_sleep"`
	TimeLeft        *int     `json:"time_left,omitempty"`   // 左侧卧时长（秒）
	TimeRight       *int     `json:"time_right,omitempty"`  // 右侧卧时长（秒）
	TimeCenter      *int     `json:"time_center,omitempty"` // 仰卧时长（秒）
	PositionChanges *int     `json:"position_changes,omitempty"`
}

// SleepSample 会话期间的一条传感器采样（本服务只读，按时间戳升序）
// 各通道独立可空：设备可能只上报部分通道
type SleepSample struct {
	DeviceID        string   `json:"device_id"`
	Timestamp       int64    `json:"timestamp"`
	Stage           *int     `json:"stage,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`      // 环境温度（°C）
	Humidity        *float64 `json:"humidity,omitempty"`         // 湿度（%）
	CO2             *float64 `json:"co2,omitempty"`              // CO2（ppm）
	PM25            *float64 `json:"pm25,omitempty"`             // PM2.5（μg/m³）
	Light           *float64 `json:"light,omitempty"`            // 光照（lux）
	Noise           *float64 `json:"noise,omitempty"`            // 噪音（dB）
	HeartRate       *float64 `json:"heart_rate,omitempty"`       // 心率（bpm）
	BodyTemperature *float64 `json:"body_temperature,omitempty"` // 体温（°C）
	SpO2            *float64 `json:"spo2,omitempty"`             // 血氧（%）
}
