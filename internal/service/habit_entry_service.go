package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/recurrence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

// CheckinOutcome 是打卡状态迁移的命名结果，调用方按值分支而非捕获异常
type CheckinOutcome string

const (
	// CheckinAccepted 打卡成功，台账与计数器已在同一事务内更新
	CheckinAccepted CheckinOutcome = "accepted"
	// CheckinAlreadyRecorded 当天已有记录，幂等空操作
	CheckinAlreadyRecorded CheckinOutcome = "already_recorded"
	// CheckinNotDue 当天按周期规则不应执行，未产生任何变更
	CheckinNotDue CheckinOutcome = "not_due"
)

// RemovalOutcome 是撤销打卡的命名结果
type RemovalOutcome string

const (
	// RemovalRemoved 记录已删除，计数器已同步调整
	RemovalRemoved RemovalOutcome = "removed"
	// RemovalNotFound 当天没有记录，未产生任何变更
	RemovalNotFound RemovalOutcome = "not_found"
)

// HabitEntryService 负责打卡台账与统计逻辑。
// 台账是唯一事实来源；习惯上的连胜/累计字段只是缓存，
// 所有变更都经由本服务的事务完成，保证台账与计数器同生同灭。
type HabitEntryService struct {
	db *gorm.DB
}

// NewHabitEntryService 构造 HabitEntryService
func NewHabitEntryService(gdb *gorm.DB) *HabitEntryService {
	return &HabitEntryService{db: gdb}
}

// RecordCompletion 为习惯在指定日期打卡。
// 非打卡日返回 CheckinNotDue，重复打卡返回 CheckinAlreadyRecorded，两者均不改动任何状态。
// 打卡成功时在同一事务内写入台账并更新连胜计数，事务内对习惯行加锁，
// 同一习惯的并发打卡/撤销被串行化。
func (s *HabitEntryService) RecordCompletion(habitID uint, date time.Time, value float64, source string) (CheckinOutcome, error) {
	day := normalizeToDate(date)
	outcome := CheckinAccepted

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var habit db.Habit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&habit, habitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHabitNotFound
			}
			return err
		}

		rule, err := recurrence.New(habit.Frequency, habit.CustomDays, habit.CustomDates)
		if err != nil {
			return fmt.Errorf("habit %d has invalid rule: %w", habit.ID, err)
		}

		if !recurrence.IsDue(rule, habit.AnchorDate(), day) {
			outcome = CheckinNotDue
			return nil
		}

		var count int64
		if err := tx.Model(&db.HabitEntry{}).
			Where("habit_id = ? AND entry_date = ?", habit.ID, day).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			outcome = CheckinAlreadyRecorded
			return nil
		}

		entry := db.HabitEntry{
			HabitID:   habit.ID,
			EntryDate: day,
			Completed: true,
			Value:     value,
			Source:    source,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		now := time.Now()
		habit.CurrentStreak++
		if habit.CurrentStreak > habit.LongestStreak {
			habit.LongestStreak = habit.CurrentStreak
		}
		habit.TotalCompletions++
		habit.LastCompletedAt = &now

		return tx.Save(&habit).Error
	})
	if err != nil {
		return "", fmt.Errorf("record completion: %w", err)
	}

	return outcome, nil
}

// RemoveCompletion 撤销指定日期的打卡。
// 连胜与累计数在递减时钳制为 0（乱序撤销不再产生负连胜，
// 这是相对旧行为的策略修正）；LastCompletedAt 重新取剩余记录的最新一条。
func (s *HabitEntryService) RemoveCompletion(habitID uint, date time.Time) (RemovalOutcome, error) {
	day := normalizeToDate(date)
	outcome := RemovalRemoved

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var habit db.Habit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&habit, habitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHabitNotFound
			}
			return err
		}

		var entry db.HabitEntry
		if err := tx.Where("habit_id = ? AND entry_date = ?", habit.ID, day).
			First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = RemovalNotFound
				return nil
			}
			return err
		}

		if err := tx.Unscoped().Delete(&entry).Error; err != nil {
			return err
		}

		if habit.CurrentStreak > 0 {
			habit.CurrentStreak--
		}
		if habit.TotalCompletions > 0 {
			habit.TotalCompletions--
		}

		var latest db.HabitEntry
		err := tx.Where("habit_id = ?", habit.ID).
			Order("entry_date DESC").
			First(&latest).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			habit.LastCompletedAt = nil
		case err != nil:
			return err
		default:
			createdAt := latest.CreatedAt
			habit.LastCompletedAt = &createdAt
		}

		return tx.Save(&habit).Error
	})
	if err != nil {
		return "", fmt.Errorf("remove completion: %w", err)
	}

	return outcome, nil
}

// ResetStreak 无条件清零当前连胜，不触碰最长连胜与台账
func (s *HabitEntryService) ResetStreak(habitID uint) error {
	result := s.db.Model(&db.Habit{}).
		Where("id = ?", habitID).
		Update("current_streak", 0)
	if result.Error != nil {
		return fmt.Errorf("reset streak: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrHabitNotFound
	}
	return nil
}

// CompletedDates 返回区间内有打卡记录的日期集合，键为 2006-01-02
func (s *HabitEntryService) CompletedDates(habitID uint, start, end time.Time) (map[string]bool, error) {
	var entries []db.HabitEntry
	if err := s.db.Where("habit_id = ? AND completed = ? AND entry_date BETWEEN ? AND ?",
		habitID, true, normalizeToDate(start), normalizeToDate(end)).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list habit entries: %w", err)
	}

	dates := make(map[string]bool, len(entries))
	for _, entry := range entries {
		dates[entry.EntryDate.Format(dateLayout)] = true
	}
	return dates, nil
}

// CompletionRate 计算区间内的完成率（百分比，保留两位小数）。
// 区间内没有任何打卡日（包括 start > end 的空区间）时按策略返回 0，而非报错。
func (s *HabitEntryService) CompletionRate(habit db.Habit, start, end time.Time) (float64, error) {
	completed, err := s.CompletedDates(habit.ID, start, end)
	if err != nil {
		return 0, err
	}
	return completionRate(habit, completed, start, end)
}

// MissedDays 统计本月截至昨天"应打未打"的天数
func (s *HabitEntryService) MissedDays(habit db.Habit, now time.Time) (int, error) {
	today := normalizeToDate(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	yesterday := today.AddDate(0, 0, -1)
	if yesterday.Before(monthStart) {
		return 0, nil
	}

	completed, err := s.CompletedDates(habit.ID, monthStart, yesterday)
	if err != nil {
		return 0, err
	}

	rule, err := recurrence.New(habit.Frequency, habit.CustomDays, habit.CustomDates)
	if err != nil {
		return 0, err
	}

	missed := 0
	anchor := habit.AnchorDate()
	for day := monthStart; !day.After(yesterday); day = day.AddDate(0, 0, 1) {
		if recurrence.IsDue(rule, anchor, day) && !completed[day.Format(dateLayout)] {
			missed++
		}
	}
	return missed, nil
}

// RecomputeStreak 从台账重新推导当前连胜，绕过可能漂移的缓存计数。
// 打卡日期按从新到旧遍历，相邻两条按习惯周期判定是否连续，断档即止。
func (s *HabitEntryService) RecomputeStreak(habit db.Habit) (int, error) {
	var entries []db.HabitEntry
	if err := s.db.Where("habit_id = ? AND completed = ?", habit.ID, true).
		Order("entry_date DESC").
		Find(&entries).Error; err != nil {
		return 0, fmt.Errorf("load habit entries: %w", err)
	}

	dates := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		dates = append(dates, normalizeToDate(entry.EntryDate))
	}
	return streakFromDates(habit.Frequency, dates), nil
}

func completionRate(habit db.Habit, completed map[string]bool, start, end time.Time) (float64, error) {
	due, done, err := dueDoneCounts(habit, completed, start, end)
	if err != nil {
		return 0, err
	}

	if due == 0 {
		return 0, nil
	}
	return math.Round(float64(done)/float64(due)*10000) / 100, nil
}

// dueDoneCounts 遍历区间内每一天，统计应打卡天数与实际打卡天数
func dueDoneCounts(habit db.Habit, completed map[string]bool, start, end time.Time) (due, done int, err error) {
	rule, err := recurrence.New(habit.Frequency, habit.CustomDays, habit.CustomDates)
	if err != nil {
		return 0, 0, err
	}

	startDay := normalizeToDate(start)
	endDay := normalizeToDate(end)

	anchor := habit.AnchorDate()
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if !recurrence.IsDue(rule, anchor, day) {
			continue
		}
		due++
		if completed[day.Format(dateLayout)] {
			done++
		}
	}

	return due, done, nil
}

// streakFromDates 在降序日期序列上走连续性判定。
// 连续规则与周期相关：工作日习惯允许跨周末（周五→下周一），
// 周末习惯允许跨工作日（周日→下周六），每周习惯允许 1-7 天间隔，
// 其余频率不定义连续性，序列即断。
func streakFromDates(frequency string, dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	streak := 1
	last := dates[0]

	for _, date := range dates[1:] {
		if !consecutiveDates(frequency, last, date) {
			break
		}
		streak++
		last = date
	}

	return streak
}

// consecutiveDates 判定 older 之后的下一个打卡日恰好是 newer
func consecutiveDates(frequency string, newer, older time.Time) bool {
	gap := int(newer.Sub(older).Hours() / 24)

	switch frequency {
	case recurrence.FreqDaily:
		return gap == 1
	case recurrence.FreqWeekdays:
		if older.Weekday() == time.Friday {
			return gap == 3
		}
		return gap == 1
	case recurrence.FreqWeekends:
		if older.Weekday() == time.Sunday {
			return gap == 6
		}
		return gap == 1
	case recurrence.FreqWeekly:
		return gap >= 1 && gap <= 7
	default:
		return false
	}
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
