package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller 周期性发现未处理会话并触发调度分析
// 发现失败只记录日志，下一轮继续；停止由外部 context 控制
type Poller struct {
	service  *AnalysisService
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller 创建轮询器
func NewPoller(service *AnalysisService, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Start 阻塞运行轮询循环，启动时先执行一次发现
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Session poller started",
		zap.Duration("interval", p.interval),
	)

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Session poller stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	discovered, err := p.service.ProcessEligibleSessions(ctx)
	if err != nil {
		p.logger.Error("Session discovery failed", zap.Error(err))
		return
	}
	if discovered > 0 {
		p.logger.Info("Dispatched sessions for analysis",
			zap.Int("count", discovered),
		)
	}
}
