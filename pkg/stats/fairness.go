package stats

import (
	"math"
	"sort"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	WorkloadGini     float64 `json:"workload_gini"`     // 工时基尼系数 (0=完全公平)
	WorkloadStdDev   float64 `json:"workload_std_dev"`  // 工时标准差
	WeekendGini      float64 `json:"weekend_gini"`      // 周末执勤基尼系数
	MaxDeviation     int     `json:"max_deviation"`     // 目标工作日数最大偏差
	OverallScore     float64 `json:"overall_score"`     // 综合公平性评分 (0-100)
}

// AnalyzeFairness 计算结算报表的公平性指标
func AnalyzeFairness(agents []AgentBilan) *FairnessMetrics {
	if len(agents) == 0 {
		return &FairnessMetrics{OverallScore: 100}
	}

	hours := make([]float64, len(agents))
	weekends := make([]float64, len(agents))
	maxDev := 0
	for i, a := range agents {
		hours[i] = a.TotalHours
		weekends[i] = float64(a.WeekendDays)
		dev := a.Deviation
		if dev < 0 {
			dev = -dev
		}
		if dev > maxDev {
			maxDev = dev
		}
	}

	m := &FairnessMetrics{
		WorkloadGini:   gini(hours),
		WorkloadStdDev: stdDev(hours),
		WeekendGini:    gini(weekends),
		MaxDeviation:   maxDev,
	}

	// 基尼系数与偏差越小评分越高
	score := 100.0
	score -= m.WorkloadGini * 50
	score -= m.WeekendGini * 30
	score -= float64(maxDev) * 5
	if score < 0 {
		score = 0
	}
	m.OverallScore = math.Round(score*10) / 10
	return m
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return (2*weighted - float64(n+1)*sum) / (float64(n) * sum)
}

// stdDev 计算标准差
func stdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(n))
}
