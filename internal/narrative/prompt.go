package narrative

import (
	"fmt"
	"strings"
	"time"

	"sleep-analyzer/internal/models"
)

// notAvailable 缺失指标的显式占位：缺失值必须出现在 prompt 中，不能静默省略
const notAvailable = "N/A"

// BuildPrompt 构造固定结构的分析 prompt
// 镶嵌全部可用指标；编号的分析要求约定了生成文本的章节结构，
// 推荐项抽取依赖这些章节标题
func BuildPrompt(session *models.SleepSession, metrics *models.AggregatedMetrics, scores *models.QualityScores) string {
	sleepDurationHours := float64(session.EndTime-session.StartTime) / (1000 * 60 * 60)
	if session.TotalSleepHours != nil {
		sleepDurationHours = *session.TotalSleepHours
	}

	reportDate := time.UnixMilli(session.StartTime).UTC().Format("2006-01-02")

	completeSleep := "No"
	if session.IsCompleteSleep {
		completeSleep = "Yes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# SLEEP ANALYSIS - %s\n\n", reportDate)

	fmt.Fprintf(&b, "## OVERVIEW\n")
	fmt.Fprintf(&b, "- Sleep duration: %.1f hours\n", sleepDurationHours)
	fmt.Fprintf(&b, "- Complete sleep: %s\n", completeSleep)
	fmt.Fprintf(&b, "- Overall quality: %s (%.1f/100)\n\n",
		strings.ToUpper(string(scores.QualityLevel)), scores.OverallScore)

	fmt.Fprintf(&b, "## DEVICE SUMMARY\n")
	fmt.Fprintf(&b, "- Total time: %.2f hours\n", float64(session.TotalTime)/(1000*60*60))
	fmt.Fprintf(&b, "- Position changes: %s\n", fmtInt(session.PositionChanges))
	fmt.Fprintf(&b, "- Position distribution:\n")
	fmt.Fprintf(&b, "  + Left side: %ss\n", fmtInt(session.TimeLeft))
	fmt.Fprintf(&b, "  + Right side: %ss\n", fmtInt(session.TimeRight))
	fmt.Fprintf(&b, "  + Supine: %ss\n\n", fmtInt(session.TimeCenter))

	fmt.Fprintf(&b, "## PHYSIOLOGICAL METRICS\n")
	fmt.Fprintf(&b, "- Average heart rate: %s bpm\n", fmtMetric(metrics.AvgHeartRate, 1))
	fmt.Fprintf(&b, "- Minimum heart rate: %s bpm\n", fmtMetric(metrics.MinHeartRate, 1))
	fmt.Fprintf(&b, "- Maximum heart rate: %s bpm\n", fmtMetric(metrics.MaxHeartRate, 1))
	fmt.Fprintf(&b, "- Average SpO2: %s%%\n", fmtMetric(metrics.AvgSpO2, 1))
	fmt.Fprintf(&b, "- Minimum SpO2: %s%%\n", fmtMetric(metrics.MinSpO2, 1))
	fmt.Fprintf(&b, "- Body temperature: %s°C\n\n", fmtMetric(metrics.AvgBodyTemp, 1))

	fmt.Fprintf(&b, "## SLEEP ENVIRONMENT\n")
	fmt.Fprintf(&b, "- Room temperature: %s°C\n", fmtMetric(metrics.AvgEnvTemp, 1))
	fmt.Fprintf(&b, "- Humidity: %s%%\n", fmtMetric(metrics.AvgHumidity, 1))
	fmt.Fprintf(&b, "- CO2: %s ppm\n", fmtMetric(metrics.AvgCO2, 0))
	fmt.Fprintf(&b, "- PM2.5: %s μg/m³\n", fmtMetric(metrics.AvgPM25, 1))
	fmt.Fprintf(&b, "- Light: %s lux\n", fmtMetric(metrics.AvgLight, 1))
	fmt.Fprintf(&b, "- Noise: %s dB\n\n", fmtMetric(metrics.AvgNoise, 1))

	fmt.Fprintf(&b, "## SLEEP STAGE DISTRIBUTION\n")
	fmt.Fprintf(&b, "- Light sleep: %s%%\n", fmtMetric(metrics.LightSleepPercent, 1))
	fmt.Fprintf(&b, "- Deep sleep: %s%%\n", fmtMetric(metrics.DeepSleepPercent, 1))
	fmt.Fprintf(&b, "- Near wake: %s%%\n\n", fmtMetric(metrics.NearWakePercent, 1))

	fmt.Fprintf(&b, "## DETAILED SCORES\n")
	fmt.Fprintf(&b, "- Sleep efficiency: %.1f/100\n", scores.SleepEfficiency)
	fmt.Fprintf(&b, "- Environment quality: %.1f/100\n", scores.EnvironmentScore)
	fmt.Fprintf(&b, "- Physiological stability: %.1f/100\n", scores.PhysiologyScore)
	fmt.Fprintf(&b, "- **OVERALL SCORE: %.1f/100**\n\n", scores.OverallScore)

	fmt.Fprintf(&b, "## ANALYSIS REQUIREMENTS:\n")
	fmt.Fprintf(&b, "1. OVERALL ASSESSMENT of this night's sleep quality\n")
	fmt.Fprintf(&b, "2. DETAILED ANALYSIS of each aspect (duration, structure, environment, physiology)\n")
	fmt.Fprintf(&b, "3. RECOMMENDATIONS: 3-5 concrete, practical improvement measures\n")
	fmt.Fprintf(&b, "4. WARNINGS about potential health issues (if any)\n")
	fmt.Fprintf(&b, "5. FORECAST of next-day energy and mood impact\n\n")

	fmt.Fprintf(&b, "**Notes:**\n")
	fmt.Fprintf(&b, "- Use natural, accessible language\n")
	fmt.Fprintf(&b, "- Compare against healthy sleep standards\n")
	fmt.Fprintf(&b, "- Recommendations must be practical and immediately applicable\n")
	fmt.Fprintf(&b, "- Highlight both positives and areas to improve\n")

	return b.String()
}

func fmtMetric(v *float64, decimals int) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

func fmtInt(v *int) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%d", *v)
}
