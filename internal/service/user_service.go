package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 在指定用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrGoalInvalidCategory 当目标类别不在支持集合内时返回
	ErrGoalInvalidCategory = errors.New("invalid goal category")
)

// GoalCategories 是封闭的目标类别集合
var GoalCategories = []string{"fitness", "mental_health", "productivity", "learning"}

// UserService 负责用户与目标的维护
type UserService struct {
	db *gorm.DB
}

// UserInput 定义创建用户时可配置字段
type UserInput struct {
	Name     string
	Email    string
	Timezone string
}

// NewUserService 构造 UserService
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// List 返回全部用户
func (s *UserService) List() ([]db.User, error) {
	var users []db.User
	if err := s.db.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get 根据 ID 获取用户
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Create 新建用户
func (s *UserService) Create(input UserInput) (*db.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if name == "" || email == "" {
		return nil, errors.New("user name and email are required")
	}

	timezone := strings.TrimSpace(input.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}

	user := db.User{Name: name, Email: email, Timezone: timezone}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// AddGoal 为用户追加一个目标
func (s *UserService) AddGoal(userID uint, category, name string) (*db.Goal, error) {
	category = strings.TrimSpace(strings.ToLower(category))
	if !containsString(GoalCategories, category) {
		return nil, fmt.Errorf("%w: %s", ErrGoalInvalidCategory, category)
	}

	if _, err := s.Get(userID); err != nil {
		return nil, err
	}

	goal := db.Goal{UserID: userID, Category: category, Name: strings.TrimSpace(name)}
	if err := s.db.Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &goal, nil
}

// Goals 返回用户的全部目标
func (s *UserService) Goals(userID uint) ([]db.Goal, error) {
	var goals []db.Goal
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}
