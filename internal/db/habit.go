package db

import (
	"time"

	"gorm.io/gorm"
)

// Habit 频率语义:
//   - daily: 每天
//   - weekdays: 周一至周五
//   - weekends: 周六周日
//   - weekly: 每周，锚定 StartDate 所在星期
//   - monthly: 每月，锚定 StartDate 所在日号（29-31 号在短月份自然落空）
//   - custom: CustomDays（0=周日..6=周六）优先，否则 CustomDates（1..31）
//
// StartDate 为空时以 CreatedAt 作为锚点。
// CurrentStreak/LongestStreak/TotalCompletions/LastCompletedAt 是打卡台账的
// 缓存派生值，只允许经由 HabitEntryService 在事务内更新，保持
// LongestStreak >= CurrentStreak 不变式。
type Habit struct {
	gorm.Model
	UserID           uint   `gorm:"index"`
	Name             string `gorm:"not null"`
	Description      string
	Category         string `gorm:"index"`
	Frequency        string
	CustomDays       []int `gorm:"serializer:json"`
	CustomDates      []int `gorm:"serializer:json"`
	StartDate        *time.Time
	Archived         bool `gorm:"index;default:false"`
	CurrentStreak    int
	LongestStreak    int
	TotalCompletions int
	LastCompletedAt  *time.Time
}

// AnchorDate 返回周期规则的锚点日期。
func (h Habit) AnchorDate() time.Time {
	if h.StartDate != nil {
		return *h.StartDate
	}
	return h.CreatedAt
}

// HabitEntry 记录习惯打卡台账
// HabitID + EntryDate 采用唯一索引，保证每个 (习惯, 日期) 至多一条记录
// Value 存储打卡量（默认 1），Source 标记打卡来源
type HabitEntry struct {
	gorm.Model
	HabitID   uint      `gorm:"index;index:idx_habit_entry_unique,unique"`
	Habit     Habit     `gorm:"constraint:OnDelete:CASCADE"`
	EntryDate time.Time `gorm:"index:idx_habit_entry_unique,unique"`
	Completed bool      `gorm:"default:true"`
	Value     float64
	Source    string
}

// TableName 重写确保唯一索引作用到 habit_id + entry_date
func (HabitEntry) TableName() string {
	return "habit_entries"
}
