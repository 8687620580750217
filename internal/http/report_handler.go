package httpapi

import (
	"context"
	"errors"
	"net/http"

	"sleep-analyzer/internal/models"
	"sleep-analyzer/internal/narrative"
	"sleep-analyzer/internal/repository"
	"sleep-analyzer/internal/service"

	"go.uber.org/zap"
)

// analysisService 分析服务接口（用于测试替换）
type analysisService interface {
	ProcessSession(ctx context.Context, sessionID string, kind models.TriggerKind) service.Result
	RegenerateNarrative(ctx context.Context, sessionID string) (string, error)
	GetReport(ctx context.Context, sessionID string) (*models.AnalysisReport, error)
	GetLatestReport(ctx context.Context) (*models.AnalysisReport, error)
	GetDeviceReports(ctx context.Context, deviceID string, limit int) ([]*models.AnalysisReport, error)
}

// ReportHandler 睡眠分析报告 Handler
type ReportHandler struct {
	service analysisService
	logger  *zap.Logger
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(svc analysisService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  logger,
	}
}

// triggerRequest 手动触发请求体
type triggerRequest struct {
	SessionID string `json:"sessionId"`
}

// triggerResponse 手动触发响应（结果字段在顶层，不嵌套 data）
type triggerResponse struct {
	Success   bool   `json:"success"`
	ReportID  string `json:"reportId,omitempty"`
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId,omitempty"`
}

// TriggerAnalysis 手动触发一次会话分析（同步等待结果）
// POST /analysis/api/v1/analysis/trigger
func (h *ReportHandler) TriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("sessionId is required"))
		return
	}

	result := h.service.ProcessSession(r.Context(), req.SessionID, models.TriggerManual)
	if !result.Success {
		h.logger.Warn("Manual analysis failed",
			zap.String("session_id", req.SessionID),
			zap.String("error", result.Error),
		)
		writeJSON(w, statusForResult(result), Fail(result.Error))
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:   true,
		ReportID:  result.ReportID,
		SessionID: result.SessionID,
		DeviceID:  result.DeviceID,
	})
}

// RegenerateNarrative 重新生成报告叙述
// POST /analysis/api/v1/reports/{sessionId}/regenerate
func (h *ReportHandler) RegenerateNarrative(w http.ResponseWriter, r *http.Request, sessionID string) {
	narrativeText, err := h.service.RegenerateNarrative(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Narrative regeneration failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		writeJSON(w, statusForError(err), Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"sessionId": sessionID,
		"narrative": narrativeText,
	}))
}

// GetLatestReport 获取全局最新报告
// GET /analysis/api/v1/reports/latest
// 载荷是单元素列表，与其它列表端点同构
func (h *ReportHandler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetLatestReport(r.Context())
	if err != nil {
		writeJSON(w, statusForError(err), Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok([]*models.AnalysisReport{report}))
}

// GetSessionReport 按会话获取报告
// GET /analysis/api/v1/reports/session/{sessionId}
func (h *ReportHandler) GetSessionReport(w http.ResponseWriter, r *http.Request, sessionID string) {
	report, err := h.service.GetReport(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, statusForError(err), Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// GetDeviceReports 获取设备最近的报告列表
// GET /analysis/api/v1/reports/device/{deviceId}?limit=10
func (h *ReportHandler) GetDeviceReports(w http.ResponseWriter, r *http.Request, deviceID string) {
	limit := parseIntQuery(r, "limit", 10)

	reports, err := h.service.GetDeviceReports(r.Context(), deviceID, limit)
	if err != nil {
		writeJSON(w, statusForError(err), Fail(err.Error()))
		return
	}
	if reports == nil {
		reports = []*models.AnalysisReport{}
	}
	writeJSON(w, http.StatusOK, Ok(reports))
}

// statusForError 按错误类别映射 HTTP 状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, narrative.ErrExternalCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusForResult 按管线结果携带的错误类别映射状态码
func statusForResult(result service.Result) int {
	switch {
	case errors.Is(result.Err, repository.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(result.Err, service.ErrAlreadyInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
