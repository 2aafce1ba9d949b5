package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/recurrence"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidCategory 当类别不在支持集合内时返回
	ErrHabitInvalidCategory = errors.New("invalid habit category")
)

// HabitCategories 是封闭的习惯类别集合，顺序固定，推荐引擎按此顺序遍历
var HabitCategories = []string{
	"exercise",
	"meditation",
	"sleep",
	"nutrition",
	"social",
	"learning",
	"mindfulness",
	"other",
}

// HabitService 负责 Habit 数据的增删改查
// 周期规则在创建/更新时即完成构造校验，保证入库的习惯都能求值
type HabitService struct {
	db *gorm.DB
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	UserID   uint
	Category string
	Archived *bool
	Search   string
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	UserID      uint
	Name        string
	Description string
	Category    string
	Frequency   string
	CustomDays  []int
	CustomDates []int
	StartDate   *time.Time
	Archived    bool
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// List 返回习惯集合，支持基本筛选
func (s *HabitService) List(filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.Model(&db.Habit{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Archived != nil {
		query = query.Where("archived = ?", *filter.Archived)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("created_at DESC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// ListActive 返回用户未归档的习惯
func (s *HabitService) ListActive(userID uint) ([]db.Habit, error) {
	archived := false
	return s.List(HabitFilter{UserID: userID, Archived: &archived})
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:      input.UserID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    normalizeCategory(input.Category),
		Frequency:   strings.TrimSpace(strings.ToLower(input.Frequency)),
		CustomDays:  input.CustomDays,
		CustomDates: input.CustomDates,
		StartDate:   input.StartDate,
		Archived:    input.Archived,
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯
func (s *HabitService) Update(id uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	var existing db.Habit
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Description = strings.TrimSpace(input.Description)
	existing.Category = normalizeCategory(input.Category)
	existing.Frequency = strings.TrimSpace(strings.ToLower(input.Frequency))
	existing.CustomDays = input.CustomDays
	existing.CustomDates = input.CustomDates
	existing.StartDate = input.StartDate
	existing.Archived = input.Archived

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return &existing, nil
}

// SetArchived 归档或恢复习惯，归档的习惯不再参与推荐与统计
func (s *HabitService) SetArchived(id uint, archived bool) (*db.Habit, error) {
	habit, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	habit.Archived = archived
	if err := s.db.Save(habit).Error; err != nil {
		return nil, fmt.Errorf("archive habit: %w", err)
	}
	return habit, nil
}

// Delete 删除习惯及其打卡记录
func (s *HabitService) Delete(id uint) error {
	if err := s.db.Where("habit_id = ?", id).Delete(&db.HabitEntry{}).Error; err != nil {
		return fmt.Errorf("delete habit entries: %w", err)
	}
	if err := s.db.Delete(&db.Habit{}, id).Error; err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

func validateHabitInput(input HabitInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return errors.New("habit name is required")
	}

	category := normalizeCategory(input.Category)
	if !containsString(HabitCategories, category) {
		return fmt.Errorf("%w: %s", ErrHabitInvalidCategory, input.Category)
	}

	// 周期规则构造期校验：未知频率、空 custom 集合、越界取值都在这里报错
	frequency := strings.TrimSpace(strings.ToLower(input.Frequency))
	if _, err := recurrence.New(frequency, input.CustomDays, input.CustomDates); err != nil {
		return err
	}

	return nil
}

func normalizeCategory(category string) string {
	category = strings.TrimSpace(strings.ToLower(category))
	if category == "" {
		return "other"
	}
	return category
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
