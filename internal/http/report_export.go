package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"sleep-analyzer/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportExportHeader 设备报告导出表头
var ReportExportHeader = []string{
	"Report Date",
	"Session ID",
	"Session Start",
	"Session End",
	"Total Sleep Hours",
	"Complete Sleep",
	"Avg Heart Rate",
	"Min Heart Rate",
	"Max Heart Rate",
	"Avg SpO2",
	"Avg Env Temp",
	"Avg Humidity",
	"Avg CO2",
	"Avg Noise",
	"Light Sleep %",
	"Deep Sleep %",
	"Near Wake %",
	"Sleep Efficiency",
	"Environment Score",
	"Physiology Score",
	"Overall Score",
	"Quality Level",
}

// ExportDeviceReports 导出设备最近报告为 xlsx 附件
// GET /analysis/api/v1/reports/device/{deviceId}/export?limit=10
func (h *ReportHandler) ExportDeviceReports(w http.ResponseWriter, r *http.Request, deviceID string) {
	limit := parseIntQuery(r, "limit", 10)

	reports, err := h.service.GetDeviceReports(r.Context(), deviceID, limit)
	if err != nil {
		writeJSON(w, statusForError(err), Fail(err.Error()))
		return
	}

	data, err := generateReportExport(reports)
	if err != nil {
		h.logger.Error("Failed to generate report export",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("sleep-reports-%s-%s.xlsx", deviceID, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, _ = w.Write(data)
}

// generateReportExport 生成报告导出 Excel 文件
// reports 为空时只生成表头
func generateReportExport(reports []*models.AnalysisReport) ([]byte, error) {
	f := excelize.NewFile()

	sheetName := "Sleep Reports"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ReportExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for rowIdx, report := range reports {
		row := rowIdx + 2
		values := reportRowValues(report)
		for colIdx, value := range values {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}

// reportRowValues 按 ReportExportHeader 的列序展开一条报告
func reportRowValues(report *models.AnalysisReport) []any {
	completeSleep := "No"
	if report.IsCompleteSleep {
		completeSleep = "Yes"
	}

	return []any{
		report.ReportDate,
		report.SessionID,
		formatMillis(report.SessionStart),
		formatMillis(report.SessionEnd),
		floatCell(report.TotalSleepHours),
		completeSleep,
		floatCell(report.Metrics.AvgHeartRate),
		floatCell(report.Metrics.MinHeartRate),
		floatCell(report.Metrics.MaxHeartRate),
		floatCell(report.Metrics.AvgSpO2),
		floatCell(report.Metrics.AvgEnvTemp),
		floatCell(report.Metrics.AvgHumidity),
		floatCell(report.Metrics.AvgCO2),
		floatCell(report.Metrics.AvgNoise),
		floatCell(report.Metrics.LightSleepPercent),
		floatCell(report.Metrics.DeepSleepPercent),
		floatCell(report.Metrics.NearWakePercent),
		report.Scores.SleepEfficiency,
		report.Scores.EnvironmentScore,
		report.Scores.PhysiologyScore,
		report.Scores.OverallScore,
		string(report.Scores.QualityLevel),
	}
}

func floatCell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func formatMillis(ms int64) any {
	if ms == 0 {
		return nil
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
