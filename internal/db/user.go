package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 定义了用户模型
// PublicID 为对外暴露的稳定标识，避免泄露自增主键
// Timezone 影响"今天/昨天"的判定，默认 UTC
type User struct {
	gorm.Model
	PublicID string `gorm:"uniqueIndex;size:36"`
	Name     string `gorm:"not null"`
	Email    string `gorm:"uniqueIndex;not null"`
	Timezone string `gorm:"default:UTC"`
}

// BeforeCreate 自动补齐 PublicID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID == "" {
		u.PublicID = uuid.NewString()
	}
	return nil
}

// Goal 描述用户声明的目标，推荐引擎据此匹配候选习惯
// Category 取值 fitness/mental_health/productivity/learning
type Goal struct {
	gorm.Model
	UserID   uint   `gorm:"index"`
	User     User   `gorm:"constraint:OnDelete:CASCADE"`
	Category string `gorm:"not null"`
	Name     string
}
