// Package recurrence 判定某个习惯在某个日期是否"应当执行"。
// 所有判定都是纯函数：同样的 (规则, 锚点, 日期) 永远得到同样的结果。
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// 支持的频率标识，与 Habit.Frequency 存储值一致
const (
	FreqDaily    = "daily"
	FreqWeekdays = "weekdays"
	FreqWeekends = "weekends"
	FreqWeekly   = "weekly"
	FreqMonthly  = "monthly"
	FreqCustom   = "custom"
)

var (
	// ErrUnknownFrequency 在频率标识不在支持集合内时返回
	ErrUnknownFrequency = errors.New("unknown habit frequency")
	// ErrEmptyCustomRule 在 custom 规则的星期集合与日号集合同时为空时返回。
	// 旧实现会静默地永不触发，这里改为构造期失败。
	ErrEmptyCustomRule = errors.New("custom rule has neither weekdays nor month days")
	// ErrCustomValueOutOfRange 在 custom 集合包含非法取值时返回
	ErrCustomValueOutOfRange = errors.New("custom rule value out of range")
)

// Rule 是封闭的频率变体集合。
// 变体通过非导出方法封闭，新增频率必须在本包内补全判定逻辑。
type Rule interface {
	dueOn(anchor, date time.Time) bool
	// Frequency 返回规则对应的频率标识
	Frequency() string
}

// Daily 每天都应执行
type Daily struct{}

// Weekdays 仅工作日（周一至周五）执行
type Weekdays struct{}

// Weekends 仅周末（周六周日）执行
type Weekends struct{}

// Weekly 每周执行一次，锚定锚点日期所在的星期
type Weekly struct{}

// Monthly 每月执行一次，锚定锚点日期的日号。
// 锚点落在 29-31 号时，短月份不会触发，这是文档化的边界行为，不做特殊处理。
type Monthly struct{}

// Custom 自定义集合：Weekdays（0=周日..6=周六）非空时优先生效，
// 否则按 MonthDays（1..31）判定。
type Custom struct {
	Weekdays  []int
	MonthDays []int
}

func (Daily) dueOn(_, _ time.Time) bool { return true }
func (Daily) Frequency() string         { return FreqDaily }

func (Weekdays) dueOn(_, date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
func (Weekdays) Frequency() string { return FreqWeekdays }

func (Weekends) dueOn(_, date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (Weekends) Frequency() string { return FreqWeekends }

func (Weekly) dueOn(anchor, date time.Time) bool {
	return date.Weekday() == anchor.Weekday()
}
func (Weekly) Frequency() string { return FreqWeekly }

func (Monthly) dueOn(anchor, date time.Time) bool {
	return date.Day() == anchor.Day()
}
func (Monthly) Frequency() string { return FreqMonthly }

func (c Custom) dueOn(_, date time.Time) bool {
	if len(c.Weekdays) > 0 {
		return containsInt(c.Weekdays, int(date.Weekday()))
	}
	return containsInt(c.MonthDays, date.Day())
}
func (Custom) Frequency() string { return FreqCustom }

// New 从习惯的存储字段构造规则。
// custom 规则在此做快速失败校验：两个集合同时为空、或取值越界都会报错，
// 不会等到循环深处才静默失配。
func New(frequency string, customDays, customDates []int) (Rule, error) {
	switch frequency {
	case FreqDaily:
		return Daily{}, nil
	case FreqWeekdays:
		return Weekdays{}, nil
	case FreqWeekends:
		return Weekends{}, nil
	case FreqWeekly:
		return Weekly{}, nil
	case FreqMonthly:
		return Monthly{}, nil
	case FreqCustom:
		return newCustom(customDays, customDates)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrequency, frequency)
	}
}

func newCustom(customDays, customDates []int) (Rule, error) {
	if len(customDays) == 0 && len(customDates) == 0 {
		return nil, ErrEmptyCustomRule
	}
	for _, d := range customDays {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: weekday %d", ErrCustomValueOutOfRange, d)
		}
	}
	for _, d := range customDates {
		if d < 1 || d > 31 {
			return nil, fmt.Errorf("%w: month day %d", ErrCustomValueOutOfRange, d)
		}
	}
	return Custom{Weekdays: customDays, MonthDays: customDates}, nil
}

// IsDue 判定 date 当天是否应执行。
// anchor 为规则锚点（通常是习惯的开始日期）；允许传入早于锚点的日期，
// 是否查询越界日期由调用方决定。
func IsDue(rule Rule, anchor, date time.Time) bool {
	return rule.dueOn(anchor, date)
}

func containsInt(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
