package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAnalysisRoutes 注册分析与报告路由
func (r *Router) RegisterAnalysisRoutes(h *ReportHandler) {
	// manual trigger
	r.Handle("/analysis/api/v1/analysis/trigger", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.TriggerAnalysis(w, req)
	})

	// latest report
	r.Handle("/analysis/api/v1/reports/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetLatestReport(w, req)
	})

	// report by session
	r.Handle("/analysis/api/v1/reports/session/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sessionID := strings.TrimPrefix(req.URL.Path, "/analysis/api/v1/reports/session/")
		if sessionID == "" || strings.Contains(sessionID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetSessionReport(w, req, sessionID)
	})

	// device reports（列表 + /export）
	r.Handle("/analysis/api/v1/reports/device/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/analysis/api/v1/reports/device/")
		if strings.HasSuffix(rest, "/export") {
			deviceID := strings.TrimSuffix(rest, "/export")
			if deviceID == "" || strings.Contains(deviceID, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.ExportDeviceReports(w, req, deviceID)
			return
		}
		if rest == "" || strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetDeviceReports(w, req, rest)
	})

	// regenerate narrative：/analysis/api/v1/reports/{sessionId}/regenerate
	r.Handle("/analysis/api/v1/reports/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/analysis/api/v1/reports/")
		if !strings.HasSuffix(rest, "/regenerate") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sessionID := strings.TrimSuffix(rest, "/regenerate")
		if sessionID == "" || strings.Contains(sessionID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.RegenerateNarrative(w, req, sessionID)
	})
}
