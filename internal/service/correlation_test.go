package service

import (
	"math"
	"strings"
	"testing"
)

func TestPearsonPerfectPositive(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}

	got := pearson(xs, ys)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("完全正相关应为 1，实际 %v", got)
	}
}

func TestPearsonPerfectNegative(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{10, 8, 6, 4, 2}

	got := pearson(xs, ys)
	if math.Abs(got+1) > 1e-9 {
		t.Errorf("完全负相关应为 -1，实际 %v", got)
	}
}

func TestPearsonSymmetry(t *testing.T) {
	xs := []float64{1, 0, 1, 1, 0, 1}
	ys := []float64{3, 2, 4, 3, 1, 4}

	if math.Abs(pearson(xs, ys)-pearson(ys, xs)) > 1e-12 {
		t.Error("皮尔逊系数应满足对称性")
	}
}

func TestPearsonZeroVariance(t *testing.T) {
	xs := []float64{1, 1, 1, 1}
	ys := []float64{1, 2, 3, 4}

	if got := pearson(xs, ys); got != 0 {
		t.Errorf("常数序列应返回 0，实际 %v", got)
	}
}

func TestCorrelateRequiresMinimumCommonDays(t *testing.T) {
	a := DailySeries{"2026-01-01": 1, "2026-01-02": 0}
	b := DailySeries{"2026-01-01": 3, "2026-01-02": 2}

	if got := correlate(a, b); got != 0 {
		t.Errorf("共同天数不足 %d 时应返回 0，实际 %v", minCorrelationDays, got)
	}
}

func TestCorrelateAlignsByCommonDates(t *testing.T) {
	// 只有三天重叠，且重叠部分完全同步
	a := DailySeries{
		"2026-01-01": 1,
		"2026-01-02": 2,
		"2026-01-03": 3,
		"2026-01-09": 99,
	}
	b := DailySeries{
		"2026-01-01": 10,
		"2026-01-02": 20,
		"2026-01-03": 30,
		"2026-01-05": -5,
	}

	got := correlate(a, b)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("重叠部分完全同步应为 1，实际 %v", got)
	}
}

func TestCorrelationStrengthBuckets(t *testing.T) {
	cases := []struct {
		coefficient float64
		want        string
	}{
		{0.9, "strong"},
		{-0.75, "strong"},
		{0.7, "strong"},
		{0.5, "moderate"},
		{-0.4, "moderate"},
		{0.25, "weak"},
		{-0.2, "weak"},
		{0.1, "negligible"},
		{0, "negligible"},
	}

	for _, tc := range cases {
		if got := correlationStrength(tc.coefficient); got != tc.want {
			t.Errorf("系数 %v 应为 %s，实际 %s", tc.coefficient, tc.want, got)
		}
	}
}

func TestCorrelationDescriptionMentionsHabit(t *testing.T) {
	for _, coefficient := range []float64{0.8, 0.5, 0.3, 0, -0.3, -0.5, -0.8} {
		desc := correlationDescription("晨跑", coefficient)
		if !strings.Contains(desc, "晨跑") {
			t.Errorf("系数 %v 的描述应包含习惯名，实际 %q", coefficient, desc)
		}
	}
}

func TestCorrelationDescriptionDistinctBuckets(t *testing.T) {
	seen := make(map[string]bool)
	for _, coefficient := range []float64{0.8, 0.5, 0.3, 0, -0.3, -0.5, -0.8} {
		desc := correlationDescription("冥想", coefficient)
		if seen[desc] {
			t.Errorf("不同档位不应产生相同描述: %q", desc)
		}
		seen[desc] = true
	}
	if len(seen) != 7 {
		t.Errorf("应有 7 档描述，实际 %d", len(seen))
	}
}
