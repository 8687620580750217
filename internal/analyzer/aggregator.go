package analyzer

import (
	"errors"

	"sleep-analyzer/internal/models"
)

// ErrNoSamples 样本窗口为空，无法聚合
var ErrNoSamples = errors.New("no sleep samples to analyze")

// channelStats 单通道流式统计
type channelStats struct {
	sum   float64
	count int
	min   float64
	max   float64
}

func (s *channelStats) add(v float64) {
	if s.count == 0 {
		s.min = v
		s.max = v
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.sum += v
	s.count++
}

func (s *channelStats) avg() *float64 {
	if s.count == 0 {
		return nil
	}
	v := s.sum / float64(s.count)
	return &v
}

func (s *channelStats) minVal() *float64 {
	if s.count == 0 {
		return nil
	}
	v := s.min
	return &v
}

func (s *channelStats) maxVal() *float64 {
	if s.count == 0 {
		return nil
	}
	v := s.max
	return &v
}

// Aggregate 单遍扫描样本序列，产出聚合指标
// 各通道只统计非空读数；某通道全部缺失时对应指标为 nil。
// 阶段分布按全部样本数计算百分比（含无阶段读数的样本）。
func Aggregate(samples []models.SleepSample) (*models.AggregatedMetrics, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	var heartRate, spo2, bodyTemp channelStats
	var envTemp, humidity, co2, pm25, light, noise channelStats
	stageCounts := make(map[int]int)

	for _, s := range samples {
		if s.HeartRate != nil {
			heartRate.add(*s.HeartRate)
		}
		if s.SpO2 != nil {
			spo2.add(*s.SpO2)
		}
		if s.BodyTemperature != nil {
			bodyTemp.add(*s.BodyTemperature)
		}

		if s.Temperature != nil {
			envTemp.add(*s.Temperature)
		}
		if s.Humidity != nil {
			humidity.add(*s.Humidity)
		}
		if s.CO2 != nil {
			co2.add(*s.CO2)
		}
		if s.PM25 != nil {
			pm25.add(*s.PM25)
		}
		if s.Light != nil {
			light.add(*s.Light)
		}
		if s.Noise != nil {
			noise.add(*s.Noise)
		}

		if s.Stage != nil {
			stageCounts[*s.Stage]++
		}
	}

	total := len(samples)
	stagePercent := func(stage int) *float64 {
		count, ok := stageCounts[stage]
		if !ok {
			return nil
		}
		v := float64(count) / float64(total) * 100
		return &v
	}

	return &models.AggregatedMetrics{
		AvgHeartRate: heartRate.avg(),
		MinHeartRate: heartRate.minVal(),
		MaxHeartRate: heartRate.maxVal(),
		AvgSpO2:      spo2.avg(),
		MinSpO2:      spo2.minVal(),
		AvgBodyTemp:  bodyTemp.avg(),

		AvgEnvTemp:  envTemp.avg(),
		AvgHumidity: humidity.avg(),
		AvgCO2:      co2.avg(),
		AvgPM25:     pm25.avg(),
		AvgLight:    light.avg(),
		AvgNoise:    noise.avg(),

		LightSleepPercent: stagePercent(models.StageLightSleep),
		DeepSleepPercent:  stagePercent(models.StageDeepSleep),
		NearWakePercent:   stagePercent(models.StageNearWake),

		TotalSamples: total,
	}, nil
}
