package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig PostgreSQL 配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT 配置
// Broker 为空时不启用 MQTT 触发源（仅轮询 + 手动触发）
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // 会话结束事件主题
	QoS      byte
}

// OpenAIConfig 文本生成服务配置（OpenAI 兼容接口）
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int           // 输出长度上限
	Timeout   time.Duration // 单次调用超时
}

// AnalyzerConfig 分析管线配置
type AnalyzerConfig struct {
	PollInterval  time.Duration // 轮询间隔
	GraceInterval time.Duration // 会话结束后的宽限期（结束至少这么久才分析）
	Lookback      time.Duration // 发现窗口（只处理开始时间在此窗口内的会话）
	BatchSize     int           // 单次轮询最多发现的会话数
	MaxConcurrent int           // 并发分析上限（信号量）
}

// Config 睡眠分析服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	OpenAI   OpenAIConfig
	Analyzer AnalyzerConfig

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "sleepdb")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "sleep-analyzer")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_SESSION_TOPIC", "sleep/sessions/closed")
	cfg.MQTT.QoS = 1

	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", "")
	cfg.OpenAI.Model = getEnv("OPENAI_MODEL", "gpt-5-nano")
	cfg.OpenAI.MaxTokens = getEnvInt("OPENAI_MAX_TOKENS", 2000)
	cfg.OpenAI.Timeout = time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 60)) * time.Second

	cfg.Analyzer.PollInterval = time.Duration(getEnvInt("ANALYZER_POLL_SECONDS", 30)) * time.Second
	cfg.Analyzer.GraceInterval = time.Duration(getEnvInt("ANALYZER_GRACE_SECONDS", 300)) * time.Second
	cfg.Analyzer.Lookback = time.Duration(getEnvInt("ANALYZER_LOOKBACK_HOURS", 24)) * time.Hour
	cfg.Analyzer.BatchSize = getEnvInt("ANALYZER_BATCH_SIZE", 10)
	cfg.Analyzer.MaxConcurrent = getEnvInt("ANALYZER_MAX_CONCURRENT", 4)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
