package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sleep-analyzer/internal/cache"
	"sleep-analyzer/internal/config"
	"sleep-analyzer/internal/consumer"
	"sleep-analyzer/internal/database"
	httpapi "sleep-analyzer/internal/http"
	"sleep-analyzer/internal/logger"
	"sleep-analyzer/internal/mqtt"
	"sleep-analyzer/internal/narrative"
	"sleep-analyzer/internal/repository"
	"sleep-analyzer/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "sleep-analyzer")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 4. Redis（最新报告缓存）
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	reportCache := cache.NewReportCache(redisClient, log)

	// 5. 仓储与分析管线
	sessionRepo := repository.NewSessionRepository(db, log)
	reportRepo := repository.NewReportRepository(db, log)
	triggerRepo := repository.NewTriggerRepository(db, log)

	llmClient := narrative.NewClient(&cfg.OpenAI, log)
	generator := narrative.NewGenerator(llmClient, log)

	analysisService := service.NewAnalysisService(
		sessionRepo, reportRepo, triggerRepo, generator, reportCache, cfg.Analyzer, log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. 轮询发现（兜底触发源）
	poller := service.NewPoller(analysisService, cfg.Analyzer.PollInterval, log)
	go poller.Start(ctx)

	// 7. MQTT 会话结束事件（可选触发源）
	var sessionConsumer *consumer.SessionConsumer
	if cfg.MQTT.Broker != "" {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()

		sessionConsumer = consumer.NewSessionConsumer(mqttClient, analysisService, cfg.MQTT.Topic, log)
		if err := sessionConsumer.Start(ctx); err != nil {
			log.Fatal("Failed to start session consumer", zap.Error(err))
		}
	} else {
		log.Info("MQTT broker not configured, automatic trigger source disabled")
	}

	// 8. HTTP 服务
	reportHandler := httpapi.NewReportHandler(analysisService, log)
	router := httpapi.NewRouter(log)
	router.RegisterAnalysisRoutes(reportHandler)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 9. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		log.Error("HTTP server error", zap.Error(err))
		cancel()
	}

	if sessionConsumer != nil {
		sessionConsumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	log.Info("Sleep analyzer stopped")
}
