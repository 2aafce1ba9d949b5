package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 为每个测试打开独立的内存数据库并完成迁移
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{},
		&db.Goal{},
		&db.Habit{},
		&db.HabitEntry{},
		&db.JournalEntry{},
		&db.SentimentAnalysis{},
	); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, name string) *db.User {
	t.Helper()

	user := db.User{Name: name, Email: name + "@example.com", Timezone: "UTC"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("创建测试用户失败: %v", err)
	}
	return &user
}

func createTestHabit(t *testing.T, gdb *gorm.DB, userID uint, name, category, frequency string) *db.Habit {
	t.Helper()

	habit := db.Habit{
		UserID:    userID,
		Name:      name,
		Category:  category,
		Frequency: frequency,
	}
	if err := gdb.Create(&habit).Error; err != nil {
		t.Fatalf("创建测试习惯失败: %v", err)
	}
	return &habit
}

func createTestJournalEntry(t *testing.T, gdb *gorm.DB, userID uint, title string, mood int, entryDate time.Time) *db.JournalEntry {
	t.Helper()

	entry := db.JournalEntry{
		UserID:    userID,
		Title:     title,
		Content:   "今天的记录：" + title,
		Mood:      mood,
		EntryDate: entryDate,
	}
	if err := gdb.Create(&entry).Error; err != nil {
		t.Fatalf("创建测试日记失败: %v", err)
	}
	return &entry
}

func testDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
