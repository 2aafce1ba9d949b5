package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrEntryNotFound 在指定日记不存在时返回
	ErrEntryNotFound = errors.New("journal entry not found")
	// ErrInvalidMood 当心情等级不在 0..4 时返回
	ErrInvalidMood = errors.New("mood must be between 0 and 4")
)

// 情感分析的单次调用预算，超时只影响该篇日记的情感数据
const sentimentTimeout = 15 * time.Second

// JournalService 负责日记的增删改查。
// 创建与内容变更后尽力触发情感分析；分析失败只记日志，不影响日记本身。
type JournalService struct {
	db        *gorm.DB
	sentiment *SentimentService
}

// JournalInput 定义创建/更新日记时可配置字段
type JournalInput struct {
	UserID    uint
	Title     string
	Content   string
	Mood      int
	EntryDate time.Time
}

// JournalFilter 描述日记列表过滤条件
type JournalFilter struct {
	UserID uint
	Start  *time.Time
	End    *time.Time
	Mood   *int
}

// NewJournalService 构造 JournalService；sentiment 可为 nil（完全关闭情感分析）
func NewJournalService(gdb *gorm.DB, sentiment *SentimentService) *JournalService {
	return &JournalService{db: gdb, sentiment: sentiment}
}

// List 返回日记集合，按日期倒序
func (s *JournalService) List(filter JournalFilter) ([]db.JournalEntry, error) {
	var entries []db.JournalEntry

	query := s.db.Model(&db.JournalEntry{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Start != nil {
		query = query.Where("entry_date >= ?", normalizeToDate(*filter.Start))
	}
	if filter.End != nil {
		query = query.Where("entry_date < ?", normalizeToDate(*filter.End).AddDate(0, 0, 1))
	}
	if filter.Mood != nil {
		query = query.Where("mood = ?", *filter.Mood)
	}

	if err := query.Order("entry_date DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}

	return entries, nil
}

// Get 根据 ID 获取日记
func (s *JournalService) Get(id uint) (*db.JournalEntry, error) {
	var entry db.JournalEntry
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return &entry, nil
}

// Create 新建日记并尽力触发情感分析
func (s *JournalService) Create(ctx context.Context, input JournalInput) (*db.JournalEntry, error) {
	if err := validateJournalInput(input); err != nil {
		return nil, err
	}

	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now()
	}

	entry := db.JournalEntry{
		UserID:    input.UserID,
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		Mood:      input.Mood,
		EntryDate: entryDate,
	}

	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create journal entry: %w", err)
	}

	s.analyzeBestEffort(ctx, &entry)
	return &entry, nil
}

// Update 更新日记；内容变更时重新分析情感
func (s *JournalService) Update(ctx context.Context, id uint, input JournalInput) (*db.JournalEntry, error) {
	if err := validateJournalInput(input); err != nil {
		return nil, err
	}

	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	contentChanged := entry.Content != input.Content

	entry.Title = strings.TrimSpace(input.Title)
	entry.Content = input.Content
	entry.Mood = input.Mood
	if !input.EntryDate.IsZero() {
		entry.EntryDate = input.EntryDate
	}

	if err := s.db.Save(entry).Error; err != nil {
		return nil, fmt.Errorf("update journal entry: %w", err)
	}

	if contentChanged {
		s.analyzeBestEffort(ctx, entry)
	}
	return entry, nil
}

// Delete 删除日记及其情感分析结果
func (s *JournalService) Delete(id uint) error {
	if err := s.db.Unscoped().Where("journal_entry_id = ?", id).Delete(&db.SentimentAnalysis{}).Error; err != nil {
		return fmt.Errorf("delete sentiment analysis: %w", err)
	}
	if err := s.db.Delete(&db.JournalEntry{}, id).Error; err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return nil
}

// Sentiment 返回日记对应的情感分析结果，没有则返回 nil
func (s *JournalService) Sentiment(entryID uint) (*db.SentimentAnalysis, error) {
	var analysis db.SentimentAnalysis
	if err := s.db.Where("journal_entry_id = ?", entryID).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sentiment analysis: %w", err)
	}
	return &analysis, nil
}

// ContentSnippet 返回日记的纯文本摘要
func (s *JournalService) ContentSnippet(entry db.JournalEntry, limit int) string {
	return TruncateRunes(MarkdownPlaintext(entry.Content), limit)
}

// analyzeBestEffort 情感分析失败只降级，不影响日记写入
func (s *JournalService) analyzeBestEffort(ctx context.Context, entry *db.JournalEntry) {
	if s.sentiment == nil {
		return
	}

	analysisCtx, cancel := context.WithTimeout(ctx, sentimentTimeout)
	defer cancel()

	if err := s.sentiment.AnalyzeEntry(analysisCtx, entry); err != nil {
		log.Printf("sentiment analysis skipped for entry %d: %v", entry.ID, err)
	}
}

func validateJournalInput(input JournalInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return errors.New("journal title is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return errors.New("journal content is required")
	}
	if input.Mood < db.MoodVeryBad || input.Mood > db.MoodVeryGood {
		return ErrInvalidMood
	}
	return nil
}
