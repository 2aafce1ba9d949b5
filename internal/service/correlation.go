package service

import (
	"fmt"
	"math"
	"sort"
)

// DailySeries 以 2006-01-02 为键的按日数值序列，键唯一，插入顺序无关
type DailySeries map[string]float64

// minCorrelationDays 是计算相关性所需的最少共同天数，不足时系数按策略取 0
const minCorrelationDays = 3

// CorrelationResult 描述单个习惯与心情序列的相关性
type CorrelationResult struct {
	HabitID     uint    `json:"habit_id"`
	HabitName   string  `json:"habit_name"`
	Coefficient float64 `json:"coefficient"`
	Strength    string  `json:"strength"`
	Description string  `json:"description"`
}

// alignSeries 取两序列键的交集并按日期升序对齐。
// 共同天数不足 minCorrelationDays 时返回 nil（数据不足策略，不是错误）。
func alignSeries(a, b DailySeries) (xs, ys []float64) {
	common := make([]string, 0, len(a))
	for day := range a {
		if _, ok := b[day]; ok {
			common = append(common, day)
		}
	}
	if len(common) < minCorrelationDays {
		return nil, nil
	}

	sort.Strings(common)
	xs = make([]float64, 0, len(common))
	ys = make([]float64, 0, len(common))
	for _, day := range common {
		xs = append(xs, a[day])
		ys = append(ys, b[day])
	}
	return xs, ys
}

// correlate 计算两条按日序列的皮尔逊相关系数
func correlate(a, b DailySeries) float64 {
	xs, ys := alignSeries(a, b)
	if xs == nil {
		return 0
	}
	return pearson(xs, ys)
}

// pearson 计算标准皮尔逊系数，任一序列方差为 0 时返回 0（避免除零）
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}

	var xMean, yMean float64
	for i := 0; i < n; i++ {
		xMean += xs[i]
		yMean += ys[i]
	}
	xMean /= float64(n)
	yMean /= float64(n)

	var numerator, xVariance, yVariance float64
	for i := 0; i < n; i++ {
		dx := xs[i] - xMean
		dy := ys[i] - yMean
		numerator += dx * dy
		xVariance += dx * dx
		yVariance += dy * dy
	}

	denominator := math.Sqrt(xVariance * yVariance)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// correlationStrength 按固定阈值映射强度标签
func correlationStrength(coefficient float64) string {
	abs := math.Abs(coefficient)
	switch {
	case abs >= 0.7:
		return "strong"
	case abs >= 0.4:
		return "moderate"
	case abs >= 0.2:
		return "weak"
	default:
		return "negligible"
	}
}

// correlationDescription 生成面向用户的相关性描述，正负各三档加中性共七档
func correlationDescription(habitName string, coefficient float64) string {
	switch {
	case coefficient >= 0.7:
		return fmt.Sprintf("坚持「%s」似乎对你的心情有很强的正面影响。", habitName)
	case coefficient >= 0.4:
		return fmt.Sprintf("「%s」似乎与你心情的改善相关。", habitName)
	case coefficient >= 0.2:
		return fmt.Sprintf("「%s」可能对你的心情有轻微的正面作用。", habitName)
	case coefficient <= -0.7:
		return fmt.Sprintf("练习「%s」的日子往往伴随着较低的心情。这可能说明你在糟糕的日子才做它，也可能这个习惯本身需要调整。", habitName)
	case coefficient <= -0.4:
		return fmt.Sprintf("「%s」似乎与心情下降相关，考虑调整这个习惯或它的执行时间。", habitName)
	case coefficient <= -0.2:
		return fmt.Sprintf("「%s」可能对心情有轻微的负面作用，建议持续观察这个模式。", habitName)
	default:
		return fmt.Sprintf("尚未发现「%s」与心情之间的明显关联。", habitName)
	}
}
