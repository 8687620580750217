package analyzer

import (
	"math"

	"sleep-analyzer/internal/models"
)

// timeInBedRatio 卧床时间系数：设备不单独测卧床时间，按总时长的固定倍数估算
const timeInBedRatio = 1.1

// Score 根据会话元数据和聚合指标计算质量评分（纯函数）
// 缺失的通道不参与扣分；总分按实际生效的权重归一化
func Score(session *models.SleepSession, metrics *models.AggregatedMetrics) models.QualityScores {
	totalSleepSeconds := float64(session.TotalTime) / 1000
	timeInBedSeconds := totalSleepSeconds * timeInBedRatio

	sleepEfficiency := 0.0
	if timeInBedSeconds > 0 {
		sleepEfficiency = totalSleepSeconds / timeInBedSeconds * 100
	}

	envScore := environmentScore(metrics)
	physScore := physiologyScore(metrics)
	overall := overallScore(session, metrics, sleepEfficiency, envScore, physScore)

	return models.QualityScores{
		SleepEfficiency:  round1(clamp(sleepEfficiency)),
		EnvironmentScore: round1(clamp(envScore)),
		PhysiologyScore:  round1(clamp(physScore)),
		OverallScore:     round1(clamp(overall)),
		QualityLevel:     qualityLevelFor(overall),
	}
}

// environmentScore 环境评分：从 100 起按固定阈值带扣分
func environmentScore(m *models.AggregatedMetrics) float64 {
	score := 100.0

	// 室温（18-22°C 理想）
	if m.AvgEnvTemp != nil {
		switch {
		case *m.AvgEnvTemp < 16 || *m.AvgEnvTemp > 24:
			score -= 30
		case *m.AvgEnvTemp < 18 || *m.AvgEnvTemp > 22:
			score -= 15
		}
	}

	// 湿度（40-60% 理想）
	if m.AvgHumidity != nil {
		switch {
		case *m.AvgHumidity < 30 || *m.AvgHumidity > 70:
			score -= 20
		case *m.AvgHumidity < 40 || *m.AvgHumidity > 60:
			score -= 10
		}
	}

	// CO2（<1000ppm 良好）
	if m.AvgCO2 != nil {
		switch {
		case *m.AvgCO2 > 1500:
			score -= 25
		case *m.AvgCO2 > 1000:
			score -= 15
		}
	}

	// 噪音（<30dB 良好）
	if m.AvgNoise != nil {
		switch {
		case *m.AvgNoise > 50:
			score -= 25
		case *m.AvgNoise > 30:
			score -= 10
		}
	}

	return math.Max(0, score)
}

// physiologyScore 生理评分
func physiologyScore(m *models.AggregatedMetrics) float64 {
	score := 100.0

	// 心率
	if m.AvgHeartRate != nil {
		switch {
		case *m.AvgHeartRate < 40 || *m.AvgHeartRate > 100:
			score -= 30
		case *m.AvgHeartRate < 50 || *m.AvgHeartRate > 90:
			score -= 15
		}
	}

	// 血氧
	if m.AvgSpO2 != nil {
		switch {
		case *m.AvgSpO2 < 90:
			score -= 40
		case *m.AvgSpO2 < 95:
			score -= 20
		}
	}

	return math.Max(0, score)
}

// overallScore 加权总分
// 固定权重：睡眠效率 0.3、生理 0.3、环境 0.2、深睡占比 0.1、体位变化 0.1；
// 后两项仅在数据存在时生效，总分按生效权重之和归一化，
// 缺失的分量不会隐式拉低总分
func overallScore(session *models.SleepSession, m *models.AggregatedMetrics, sleepEfficiency, envScore, physScore float64) float64 {
	score := 0.0
	weight := 0.0

	score += sleepEfficiency * 0.3
	weight += 0.3

	score += physScore * 0.3
	weight += 0.3

	score += envScore * 0.2
	weight += 0.2

	// 深睡占比（超过 30% 按 30% 计满分）
	if m.DeepSleepPercent != nil {
		score += math.Min(*m.DeepSleepPercent, 30) * (0.1 / 30) * 100
		weight += 0.1
	}

	// 体位变化（每次 -2 分，下限 0）
	if session.PositionChanges != nil {
		positionScore := math.Max(0, 100-float64(*session.PositionChanges)*2)
		score += positionScore * 0.1
		weight += 0.1
	}

	if weight == 0 {
		return 0
	}
	return score / weight
}

// qualityLevelFor 质量等级阶梯
func qualityLevelFor(score float64) models.QualityLevel {
	switch {
	case score >= 80:
		return models.QualityExcellent
	case score >= 65:
		return models.QualityGood
	case score >= 50:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
