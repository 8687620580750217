package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "sleepdb", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "", cfg.MQTT.Broker)
	assert.Equal(t, "sleep-analyzer", cfg.MQTT.ClientID)
	assert.Equal(t, "sleep/sessions/closed", cfg.MQTT.Topic)

	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-5-nano", cfg.OpenAI.Model)
	assert.Equal(t, 2000, cfg.OpenAI.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)

	assert.Equal(t, 30*time.Second, cfg.Analyzer.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Analyzer.GraceInterval)
	assert.Equal(t, 24*time.Hour, cfg.Analyzer.Lookback)
	assert.Equal(t, 10, cfg.Analyzer.BatchSize)
	assert.Equal(t, 4, cfg.Analyzer.MaxConcurrent)

	assert.Equal(t, ":8090", cfg.HTTP.Addr)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("OPENAI_MODEL", "test-model")
	os.Setenv("ANALYZER_POLL_SECONDS", "10")
	os.Setenv("ANALYZER_MAX_CONCURRENT", "2")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证环境变量覆盖
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "test-model", cfg.OpenAI.Model)
	assert.Equal(t, 10*time.Second, cfg.Analyzer.PollInterval)
	assert.Equal(t, 2, cfg.Analyzer.MaxConcurrent)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 清理环境变量
	os.Clearenv()
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db-host",
		Port:     5432,
		User:     "u",
		Password: "p",
		Database: "d",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db-host port=5432 user=u password=p dbname=d sslmode=disable", cfg.GetDSN())
}

func TestGetEnvInt(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))

	os.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("TEST_INT", 7))

	// 非数字回退默认值
	os.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))

	os.Unsetenv("TEST_INT")
}
