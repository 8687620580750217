package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"sleep-analyzer/internal/analyzer"
	"sleep-analyzer/internal/config"
	"sleep-analyzer/internal/models"
	"sleep-analyzer/internal/narrative"
	"sleep-analyzer/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sessionStore 会话/样本读取接口（用于测试替换）
type sessionStore interface {
	GetSession(sessionID string) (*models.SleepSession, error)
	GetSamples(deviceID string, startTime, endTime int64) ([]models.SleepSample, error)
	FindUnprocessed(grace, lookback time.Duration, limit int) ([]models.SleepSession, error)
}

// reportStore 报告存储接口
type reportStore interface {
	Save(report *models.AnalysisReport) error
	GetBySession(sessionID string) (*models.AnalysisReport, error)
	GetLatest() (*models.AnalysisReport, error)
	GetByDevice(deviceID string, limit int) ([]*models.AnalysisReport, error)
	UpdateNarrative(sessionID, narrativeText string, recommendations []string) error
}

// triggerStore 尝试台账接口
type triggerStore interface {
	Open(sessionID string, kind models.TriggerKind) (string, error)
	Close(sessionID string, status models.TriggerStatus, errorMessage *string) error
}

// narrator 叙述生成接口
type narrator interface {
	Generate(ctx context.Context, session *models.SleepSession, metrics *models.AggregatedMetrics, scores *models.QualityScores) (string, []string)
	Call(ctx context.Context, session *models.SleepSession, metrics *models.AggregatedMetrics, scores *models.QualityScores) (string, error)
}

// reportCache 最新报告缓存接口
type reportCache interface {
	GetLatest(ctx context.Context) (*models.AnalysisReport, error)
	SetLatest(ctx context.Context, report *models.AnalysisReport) error
	Invalidate(ctx context.Context) error
}

// ErrAlreadyInProgress 同会话已有在途尝试
var ErrAlreadyInProgress = errors.New("analysis already in progress for session")

// Result 一次分析尝试的结果
// Err 携带原始错误供调用方用 errors.Is 判类别，不参与序列化
type Result struct {
	Success   bool   `json:"success"`
	ReportID  string `json:"report_id,omitempty"`
	SessionID string `json:"session_id"`
	DeviceID  string `json:"device_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

// failure 构造失败结果，Error 文本与 Err 保持一致
func failure(sessionID, deviceID string, err error) Result {
	return Result{
		Success:   false,
		SessionID: sessionID,
		DeviceID:  deviceID,
		Error:     err.Error(),
		Err:       err,
	}
}

// AnalysisService 会话分析管线
// 职责：
// 1. 编排单会话的完整分析（取数 → 聚合 → 评分 → 叙述 → 落库 → 台账）
// 2. 轮询发现未处理会话并并发派发（信号量限流）
// 3. 同会话的并发触发去重（进程内 in-flight 标记 + 数据库唯一约束兜底）
type AnalysisService struct {
	sessions  sessionStore
	reports   reportStore
	triggers  triggerStore
	generator narrator
	cache     reportCache
	cfg       config.AnalyzerConfig
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	sem      chan struct{}
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(
	sessions *repository.SessionRepository,
	reports *repository.ReportRepository,
	triggers *repository.TriggerRepository,
	generator *narrative.Generator,
	reportCache reportCache,
	cfg config.AnalyzerConfig,
	logger *zap.Logger,
) *AnalysisService {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &AnalysisService{
		sessions:  sessions,
		reports:   reports,
		triggers:  triggers,
		generator: generator,
		cache:     reportCache,
		cfg:       cfg,
		logger:    logger,
		inflight:  make(map[string]struct{}),
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// ProcessSession 对一个会话执行一次完整的分析尝试
// 状态机：Pending → Processing → Completed|Failed；
// 台账在入口 Open、出口 Close；任何致命错误都只终结本次尝试，
// 会话在没有落库报告前仍可被再次发现
func (s *AnalysisService) ProcessSession(ctx context.Context, sessionID string, kind models.TriggerKind) Result {
	if !s.acquireSession(sessionID) {
		// 同会话已有在途尝试：直接拒绝，避免重复的外部调用
		s.logger.Info("Session analysis already in flight, skipping",
			zap.String("session_id", sessionID),
			zap.String("trigger_kind", string(kind)),
		)
		return failure(sessionID, "", ErrAlreadyInProgress)
	}
	defer s.releaseSession(sessionID)

	s.logger.Info("Starting session analysis",
		zap.String("session_id", sessionID),
		zap.String("trigger_kind", string(kind)),
	)

	if _, err := s.triggers.Open(sessionID, kind); err != nil {
		s.logger.Error("Failed to open trigger record",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return failure(sessionID, "", err)
	}

	result := s.runPipeline(ctx, sessionID)

	if result.Success {
		s.closeTrigger(sessionID, models.TriggerCompleted, nil)
	} else {
		s.closeTrigger(sessionID, models.TriggerFailed, &result.Error)
	}

	return result
}

// runPipeline 管线主体：取会话 → 取样本 → 聚合 → 评分 → 叙述 → 落库
func (s *AnalysisService) runPipeline(ctx context.Context, sessionID string) Result {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		s.logger.Error("Failed to fetch sleep session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return failure(sessionID, "", err)
	}

	samples, err := s.sessions.GetSamples(session.DeviceID, session.StartTime, session.EndTime)
	if err != nil {
		s.logger.Error("Failed to fetch sleep samples",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return failure(sessionID, session.DeviceID, err)
	}

	metrics, err := analyzer.Aggregate(samples)
	if err != nil {
		// 空窗口：本次失败，数据回填后可重试
		s.logger.Warn("No samples in session window",
			zap.String("session_id", sessionID),
			zap.String("device_id", session.DeviceID),
			zap.Error(err),
		)
		return failure(sessionID, session.DeviceID, err)
	}

	scores := analyzer.Score(session, metrics)

	// 叙述生成绝不致命：失败时拿到降级文本
	narrativeText, recommendations := s.generator.Generate(ctx, session, metrics, &scores)

	report := &models.AnalysisReport{
		ReportID:        uuid.NewString(),
		DeviceID:        session.DeviceID,
		SessionID:       session.SessionID,
		ReportDate:      time.UnixMilli(session.StartTime).UTC().Format("2006-01-02"),
		TotalSleepHours: session.TotalSleepHours,
		IsCompleteSleep: session.IsCompleteSleep,
		TimeLeft:        session.TimeLeft,
		TimeRight:       session.TimeRight,
		TimeCenter:      session.TimeCenter,
		PositionChanges: session.PositionChanges,
		Metrics:         *metrics,
		Scores:          scores,
		Narrative:       narrativeText,
		Recommendations: recommendations,
	}

	if err := s.reports.Save(report); err != nil {
		if errors.Is(err, repository.ErrDuplicateReport) {
			// 并发尝试落败：报告已存在即目标已达成，按幂等成功处理
			s.logger.Info("Report already exists, treating as success",
				zap.String("session_id", sessionID),
			)
			existingID := ""
			if existing, getErr := s.reports.GetBySession(sessionID); getErr == nil {
				existingID = existing.ReportID
			}
			return Result{Success: true, ReportID: existingID, SessionID: sessionID, DeviceID: session.DeviceID}
		}

		s.logger.Error("Failed to save analysis report",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return failure(sessionID, session.DeviceID, err)
	}

	s.invalidateCache(ctx)

	s.logger.Info("Session analysis completed",
		zap.String("session_id", sessionID),
		zap.String("report_id", report.ReportID),
		zap.Float64("overall_score", scores.OverallScore),
		zap.String("quality_level", string(scores.QualityLevel)),
	)

	return Result{Success: true, ReportID: report.ReportID, SessionID: sessionID, DeviceID: session.DeviceID}
}

// ProcessEligibleSessions 发现未处理会话并并发派发分析，返回发现数量
// 派发不等待完成：慢的外部调用不能拖住下一轮发现
func (s *AnalysisService) ProcessEligibleSessions(ctx context.Context) (int, error) {
	sessions, err := s.sessions.FindUnprocessed(s.cfg.GraceInterval, s.cfg.Lookback, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, session := range sessions {
		sessionID := session.SessionID
		s.logger.Info("Discovered unprocessed session",
			zap.String("session_id", sessionID),
			zap.String("device_id", session.DeviceID),
		)

		go func() {
			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-s.sem }()

			result := s.ProcessSession(ctx, sessionID, models.TriggerScheduled)
			if !result.Success {
				s.logger.Error("Scheduled analysis failed",
					zap.String("session_id", sessionID),
					zap.String("error", result.Error),
				)
			}
		}()
	}

	return len(sessions), nil
}

// RegenerateNarrative 基于已存报告的指标/评分重新生成叙述
// 不重新聚合原始样本（评分稳定性边界）；外部调用失败原样上抛
func (s *AnalysisService) RegenerateNarrative(ctx context.Context, sessionID string) (string, error) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return "", err
	}

	report, err := s.reports.GetBySession(sessionID)
	if err != nil {
		return "", err
	}

	narrativeText, err := s.generator.Call(ctx, session, &report.Metrics, &report.Scores)
	if err != nil {
		return "", err
	}

	recommendations := narrative.ExtractRecommendations(narrativeText)

	if err := s.reports.UpdateNarrative(sessionID, narrativeText, recommendations); err != nil {
		return "", err
	}

	s.invalidateCache(ctx)

	s.logger.Info("Narrative regenerated",
		zap.String("session_id", sessionID),
		zap.Int("recommendation_count", len(recommendations)),
	)

	return narrativeText, nil
}

// GetReport 按会话读取报告
func (s *AnalysisService) GetReport(ctx context.Context, sessionID string) (*models.AnalysisReport, error) {
	return s.reports.GetBySession(sessionID)
}

// GetLatestReport 读取全局最新报告（先查缓存）
func (s *AnalysisService) GetLatestReport(ctx context.Context) (*models.AnalysisReport, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetLatest(ctx); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			// 缓存故障降级为直查数据库
			s.logger.Warn("Report cache read failed", zap.Error(err))
		}
	}

	report, err := s.reports.GetLatest()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, report); err != nil {
			s.logger.Warn("Report cache write failed", zap.Error(err))
		}
	}

	return report, nil
}

// GetDeviceReports 读取设备最近的报告
func (s *AnalysisService) GetDeviceReports(ctx context.Context, deviceID string, limit int) ([]*models.AnalysisReport, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.reports.GetByDevice(deviceID, limit)
}

// acquireSession 获取会话的进程内 in-flight 标记
func (s *AnalysisService) acquireSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.inflight[sessionID]; exists {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *AnalysisService) releaseSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sessionID)
}

func (s *AnalysisService) closeTrigger(sessionID string, status models.TriggerStatus, errorMessage *string) {
	if err := s.triggers.Close(sessionID, status, errorMessage); err != nil {
		s.logger.Error("Failed to close trigger record",
			zap.String("session_id", sessionID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *AnalysisService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Report cache invalidation failed", zap.Error(err))
	}
}
