package service

import (
	"errors"
	"testing"

	"github.com/Bulletdev/Mindfulness/internal/recurrence"
)

func TestHabitServiceCreateAndGet(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	svc := NewHabitService(gdb)

	habit, err := svc.Create(HabitInput{
		UserID:    user.ID,
		Name:      "晨间冥想",
		Category:  "Meditation",
		Frequency: "Daily",
	})
	if err != nil {
		t.Fatalf("创建习惯失败: %v", err)
	}

	if habit.Category != "meditation" {
		t.Errorf("类别应归一化为小写，实际 %q", habit.Category)
	}
	if habit.Frequency != recurrence.FreqDaily {
		t.Errorf("频率应归一化为小写，实际 %q", habit.Frequency)
	}

	loaded, err := svc.Get(habit.ID)
	if err != nil {
		t.Fatalf("读取习惯失败: %v", err)
	}
	if loaded.Name != "晨间冥想" {
		t.Errorf("名称不匹配: %q", loaded.Name)
	}
}

func TestHabitServiceCreateRejectsInvalidCategory(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	svc := NewHabitService(gdb)

	_, err := svc.Create(HabitInput{
		UserID:    user.ID,
		Name:      "打游戏",
		Category:  "gaming",
		Frequency: recurrence.FreqDaily,
	})
	if !errors.Is(err, ErrHabitInvalidCategory) {
		t.Fatalf("非法类别应报 ErrHabitInvalidCategory，实际: %v", err)
	}
}

func TestHabitServiceCreateRejectsEmptyCustomRule(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	svc := NewHabitService(gdb)

	_, err := svc.Create(HabitInput{
		UserID:    user.ID,
		Name:      "阅读",
		Category:  "learning",
		Frequency: recurrence.FreqCustom,
	})
	if !errors.Is(err, recurrence.ErrEmptyCustomRule) {
		t.Fatalf("空 custom 规则应在创建时失败，实际: %v", err)
	}
}

func TestHabitServiceListFilters(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	other := createTestUser(t, gdb, "dawei")
	svc := NewHabitService(gdb)

	createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)
	createTestHabit(t, gdb, user.ID, "冥想", "meditation", recurrence.FreqDaily)
	createTestHabit(t, gdb, other.ID, "读书", "learning", recurrence.FreqDaily)

	habits, err := svc.List(HabitFilter{UserID: user.ID})
	if err != nil {
		t.Fatalf("列出习惯失败: %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("用户应有 2 个习惯，实际 %d", len(habits))
	}

	habits, err = svc.List(HabitFilter{UserID: user.ID, Category: "exercise"})
	if err != nil {
		t.Fatalf("按类别过滤失败: %v", err)
	}
	if len(habits) != 1 || habits[0].Name != "晨跑" {
		t.Fatalf("类别过滤结果不符: %+v", habits)
	}

	habits, err = svc.List(HabitFilter{UserID: user.ID, Search: "冥想"})
	if err != nil {
		t.Fatalf("按关键词过滤失败: %v", err)
	}
	if len(habits) != 1 || habits[0].Name != "冥想" {
		t.Fatalf("关键词过滤结果不符: %+v", habits)
	}
}

func TestHabitServiceArchiveExcludesFromActiveList(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	svc := NewHabitService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)

	if _, err := svc.SetArchived(habit.ID, true); err != nil {
		t.Fatalf("归档失败: %v", err)
	}

	active, err := svc.ListActive(user.ID)
	if err != nil {
		t.Fatalf("列出活跃习惯失败: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("归档后活跃列表应为空，实际 %d", len(active))
	}

	if _, err := svc.SetArchived(habit.ID, false); err != nil {
		t.Fatalf("恢复失败: %v", err)
	}
	active, err = svc.ListActive(user.ID)
	if err != nil {
		t.Fatalf("列出活跃习惯失败: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("恢复后活跃列表应有 1 个，实际 %d", len(active))
	}
}

func TestHabitServiceUpdateNotFound(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewHabitService(gdb)

	_, err := svc.Update(999, HabitInput{
		Name:      "不存在",
		Category:  "other",
		Frequency: recurrence.FreqDaily,
	})
	if !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("更新不存在的习惯应报 ErrHabitNotFound，实际: %v", err)
	}
}

func TestHabitServiceDeleteRemovesEntries(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "xiaolin")
	habits := NewHabitService(gdb)
	entries := NewHabitEntryService(gdb)

	habit := createTestHabit(t, gdb, user.ID, "晨跑", "exercise", recurrence.FreqDaily)
	if _, err := entries.RecordCompletion(habit.ID, testDate(2026, 1, 5), 1, "manual"); err != nil {
		t.Fatalf("打卡失败: %v", err)
	}

	if err := habits.Delete(habit.ID); err != nil {
		t.Fatalf("删除习惯失败: %v", err)
	}

	dates, err := entries.CompletedDates(habit.ID, testDate(2026, 1, 1), testDate(2026, 1, 31))
	if err != nil {
		t.Fatalf("读取台账失败: %v", err)
	}
	if len(dates) != 0 {
		t.Fatalf("删除习惯后台账应为空，实际 %d 条", len(dates))
	}
}
