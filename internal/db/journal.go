package db

import (
	"time"

	"gorm.io/gorm"
)

// 心情等级，0 最差 4 最好
const (
	MoodVeryBad  = 0
	MoodBad      = 1
	MoodNeutral  = 2
	MoodGood     = 3
	MoodVeryGood = 4
)

// JournalEntry 定义了日记模型
// Content 存储 Markdown 原文，情感分析与摘要使用净化后的纯文本
// Mood 为 0..4 的离散心情等级
type JournalEntry struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Title     string `gorm:"not null"`
	Content   string
	Mood      int       `gorm:"index"`
	EntryDate time.Time `gorm:"index"`
}

// SentimentItem 表示情感分析抽取出的实体或关键短语
type SentimentItem struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SentimentAnalysis 保存外部情感分析结果
// 四个分数均非负，但不要求和为 1；Entities/KeyPhrases 以 JSON 序列化存储
// 每篇日记至多一条分析结果，内容变更时旧结果被替换
type SentimentAnalysis struct {
	gorm.Model
	JournalEntryID   uint         `gorm:"uniqueIndex"`
	JournalEntry     JournalEntry `gorm:"constraint:OnDelete:CASCADE"`
	Language         string
	PrimarySentiment string `gorm:"index"`
	PositiveScore    float64
	NegativeScore    float64
	NeutralScore     float64
	MixedScore       float64
	Entities         []SentimentItem `gorm:"serializer:json"`
	KeyPhrases       []SentimentItem `gorm:"serializer:json"`
}
