package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/recurrence"
)

func loadHabit(t *testing.T, svc *HabitService, id uint) *db.Habit {
	t.Helper()
	habit, err := svc.Get(id)
	if err != nil {
		t.Fatalf("读取习惯失败: %v", err)
	}
	return habit
}

func TestRecordCompletionAccepted(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	outcome, err := entries.RecordCompletion(habit.ID, testDate(2026, time.January, 5), 1, "manual")
	if err != nil {
		t.Fatalf("打卡失败: %v", err)
	}
	if outcome != CheckinAccepted {
		t.Fatalf("首次打卡应为 accepted，实际 %s", outcome)
	}

	updated := loadHabit(t, habits, habit.ID)
	if updated.CurrentStreak != 1 || updated.LongestStreak != 1 || updated.TotalCompletions != 1 {
		t.Errorf("计数器应同步更新: streak=%d longest=%d total=%d",
			updated.CurrentStreak, updated.LongestStreak, updated.TotalCompletions)
	}
	if updated.LastCompletedAt == nil {
		t.Error("LastCompletedAt 应被设置")
	}
}

func TestRecordCompletionIdempotent(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)
	day := testDate(2026, time.January, 5)

	if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
		t.Fatalf("首次打卡失败: %v", err)
	}

	outcome, err := entries.RecordCompletion(habit.ID, day, 1, "manual")
	if err != nil {
		t.Fatalf("重复打卡不应报错: %v", err)
	}
	if outcome != CheckinAlreadyRecorded {
		t.Fatalf("重复打卡应为 already_recorded，实际 %s", outcome)
	}

	updated := loadHabit(t, habits, habit.ID)
	if updated.CurrentStreak != 1 || updated.TotalCompletions != 1 {
		t.Errorf("重复打卡不应改动计数器: streak=%d total=%d",
			updated.CurrentStreak, updated.TotalCompletions)
	}
}

func TestRecordCompletionNotDue(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "周末徒步", "exercise", recurrence.FreqWeekends)

	// 2026-01-05 是周一
	outcome, err := entries.RecordCompletion(habit.ID, testDate(2026, time.January, 5), 1, "manual")
	if err != nil {
		t.Fatalf("非打卡日打卡不应报错: %v", err)
	}
	if outcome != CheckinNotDue {
		t.Fatalf("非打卡日应为 not_due，实际 %s", outcome)
	}

	updated := loadHabit(t, habits, habit.ID)
	if updated.CurrentStreak != 0 || updated.TotalCompletions != 0 {
		t.Error("not_due 不应产生任何状态变更")
	}
}

func TestRecordCompletionHabitNotFound(t *testing.T) {
	gdb := setupTestDB(t)
	entries := NewHabitEntryService(gdb)

	_, err := entries.RecordCompletion(999, testDate(2026, time.January, 5), 1, "manual")
	if !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("不存在的习惯应报 ErrHabitNotFound，实际: %v", err)
	}
}

func TestRemoveCompletion(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)
	day := testDate(2026, time.January, 5)

	if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
		t.Fatalf("打卡失败: %v", err)
	}

	outcome, err := entries.RemoveCompletion(habit.ID, day)
	if err != nil {
		t.Fatalf("撤销打卡失败: %v", err)
	}
	if outcome != RemovalRemoved {
		t.Fatalf("撤销应为 removed，实际 %s", outcome)
	}

	updated := loadHabit(t, habits, habit.ID)
	if updated.CurrentStreak != 0 || updated.TotalCompletions != 0 {
		t.Errorf("撤销后计数器应回落: streak=%d total=%d",
			updated.CurrentStreak, updated.TotalCompletions)
	}
	if updated.LastCompletedAt != nil {
		t.Error("没有剩余记录时 LastCompletedAt 应为 nil")
	}
	if updated.LongestStreak != 1 {
		t.Errorf("最长连胜不应被撤销影响，实际 %d", updated.LongestStreak)
	}
}

func TestRemoveCompletionNotFound(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	outcome, err := entries.RemoveCompletion(habit.ID, testDate(2026, time.January, 5))
	if err != nil {
		t.Fatalf("撤销不存在的打卡不应报错: %v", err)
	}
	if outcome != RemovalNotFound {
		t.Fatalf("应为 not_found，实际 %s", outcome)
	}

	updated := loadHabit(t, habits, habit.ID)
	if updated.CurrentStreak != 0 || updated.TotalCompletions != 0 {
		t.Error("not_found 不应产生任何状态变更")
	}
}

func TestRemoveCompletionClampsAtZero(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)
	day := testDate(2026, time.January, 5)

	if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
		t.Fatalf("打卡失败: %v", err)
	}
	if err := entries.ResetStreak(habit.ID); err != nil {
		t.Fatalf("清零连胜失败: %v", err)
	}

	// 连胜已是 0，撤销递减时不得出现负值
	if _, err := entries.RemoveCompletion(habit.ID, day); err != nil {
		t.Fatalf("撤销打卡失败: %v", err)
	}

	updated := loadHabit(t, habits, habit.ID)
	if updated.CurrentStreak < 0 || updated.TotalCompletions < 0 {
		t.Errorf("计数器不应为负: streak=%d total=%d",
			updated.CurrentStreak, updated.TotalCompletions)
	}
}

func TestResetStreak(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)
	if _, err := entries.RecordCompletion(habit.ID, testDate(2026, time.January, 5), 1, "manual"); err != nil {
		t.Fatalf("打卡失败: %v", err)
	}

	if err := entries.ResetStreak(habit.ID); err != nil {
		t.Fatalf("清零连胜失败: %v", err)
	}

	updated := loadHabit(t, habits, habit.ID)
	if updated.CurrentStreak != 0 {
		t.Errorf("当前连胜应为 0，实际 %d", updated.CurrentStreak)
	}
	if updated.LongestStreak != 1 || updated.TotalCompletions != 1 {
		t.Error("清零不应触碰最长连胜与累计数")
	}

	if err := entries.ResetStreak(999); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("不存在的习惯应报 ErrHabitNotFound，实际: %v", err)
	}
}

func TestCompletionRate(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	start := testDate(2026, time.January, 5)
	end := testDate(2026, time.January, 8) // 4 个打卡日
	for _, day := range []time.Time{start, start.AddDate(0, 0, 1)} {
		if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
			t.Fatalf("打卡失败: %v", err)
		}
	}

	rate, err := entries.CompletionRate(*habit, start, end)
	if err != nil {
		t.Fatalf("计算完成率失败: %v", err)
	}
	if rate != 50 {
		t.Errorf("4 天完成 2 天应为 50%%，实际 %v", rate)
	}
}

func TestCompletionRateSingleDay(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)
	day := testDate(2026, time.January, 5)

	rate, err := entries.CompletionRate(*habit, day, day)
	if err != nil {
		t.Fatalf("计算完成率失败: %v", err)
	}
	if rate != 0 {
		t.Errorf("未打卡的单日应为 0%%，实际 %v", rate)
	}

	if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
		t.Fatalf("打卡失败: %v", err)
	}

	rate, err = entries.CompletionRate(*habit, day, day)
	if err != nil {
		t.Fatalf("计算完成率失败: %v", err)
	}
	if rate != 100 {
		t.Errorf("已打卡的单日应为 100%%，实际 %v", rate)
	}
}

func TestCompletionRateEmptyWindow(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	// start > end 的空区间按策略返回 0 而非报错
	rate, err := entries.CompletionRate(*habit, testDate(2026, time.January, 10), testDate(2026, time.January, 5))
	if err != nil {
		t.Fatalf("空区间不应报错: %v", err)
	}
	if rate != 0 {
		t.Errorf("空区间应为 0%%，实际 %v", rate)
	}
}

func TestRecomputeStreakDaily(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	// 1/5 1/6 1/7 连续，1/3 之前断档
	for _, day := range []time.Time{
		testDate(2026, time.January, 3),
		testDate(2026, time.January, 5),
		testDate(2026, time.January, 6),
		testDate(2026, time.January, 7),
	} {
		if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
			t.Fatalf("打卡失败: %v", err)
		}
	}

	streak, err := entries.RecomputeStreak(*habit)
	if err != nil {
		t.Fatalf("重算连胜失败: %v", err)
	}
	if streak != 3 {
		t.Errorf("连胜应为 3，实际 %d", streak)
	}
}

func TestRecomputeStreakWeekdaysBridgesWeekend(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "工作日阅读", "learning", recurrence.FreqWeekdays)

	// 2026-01-09 周五 → 2026-01-12 周一，跨周末仍算连续
	for _, day := range []time.Time{
		testDate(2026, time.January, 8),  // 周四
		testDate(2026, time.January, 9),  // 周五
		testDate(2026, time.January, 12), // 周一
	} {
		if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
			t.Fatalf("打卡失败: %v", err)
		}
	}

	streak, err := entries.RecomputeStreak(*habit)
	if err != nil {
		t.Fatalf("重算连胜失败: %v", err)
	}
	if streak != 3 {
		t.Errorf("跨周末的工作日连胜应为 3，实际 %d", streak)
	}
}

func TestRecomputeStreakWeekendsBridgesWeek(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "周末徒步", "exercise", recurrence.FreqWeekends)

	// 2026-01-11 周日 → 2026-01-17 周六，跨工作日仍算连续
	for _, day := range []time.Time{
		testDate(2026, time.January, 10), // 周六
		testDate(2026, time.January, 11), // 周日
		testDate(2026, time.January, 17), // 周六
	} {
		if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
			t.Fatalf("打卡失败: %v", err)
		}
	}

	streak, err := entries.RecomputeStreak(*habit)
	if err != nil {
		t.Fatalf("重算连胜失败: %v", err)
	}
	if streak != 3 {
		t.Errorf("跨工作日的周末连胜应为 3，实际 %d", streak)
	}
}

func TestRecomputeStreakWeeklyAllowsLooseGap(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	startDate := testDate(2026, time.January, 5) // 周一
	habit := &db.Habit{
		UserID:    user.ID,
		Name:      "每周复盘",
		Category:  "productivity",
		Frequency: recurrence.FreqWeekly,
		StartDate: &startDate,
	}
	if err := gdb.Create(habit).Error; err != nil {
		t.Fatalf("创建习惯失败: %v", err)
	}

	for _, day := range []time.Time{
		testDate(2026, time.January, 5),
		testDate(2026, time.January, 12),
		testDate(2026, time.January, 19),
	} {
		if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
			t.Fatalf("打卡失败: %v", err)
		}
	}

	streak, err := entries.RecomputeStreak(*habit)
	if err != nil {
		t.Fatalf("重算连胜失败: %v", err)
	}
	if streak != 3 {
		t.Errorf("每周连胜应为 3，实际 %d", streak)
	}
}

func TestMissedDays(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	// 以 1 月 6 日为"今天"：1 日到 5 日应打 5 天，打了 2 天
	for _, day := range []time.Time{
		testDate(2026, time.January, 2),
		testDate(2026, time.January, 4),
	} {
		if _, err := entries.RecordCompletion(habit.ID, day, 1, "manual"); err != nil {
			t.Fatalf("打卡失败: %v", err)
		}
	}

	missed, err := entries.MissedDays(*habit, testDate(2026, time.January, 6))
	if err != nil {
		t.Fatalf("计算漏打失败: %v", err)
	}
	if missed != 3 {
		t.Errorf("应漏打 3 天，实际 %d", missed)
	}
}

func TestMissedDaysOnFirstOfMonth(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	missed, err := entries.MissedDays(*habit, testDate(2026, time.February, 1))
	if err != nil {
		t.Fatalf("计算漏打失败: %v", err)
	}
	if missed != 0 {
		t.Errorf("月初第一天不应有漏打，实际 %d", missed)
	}
}
