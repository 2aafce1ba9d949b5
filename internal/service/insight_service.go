package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/recurrence"
	"gorm.io/gorm"
)

// InsightService 汇总某个用户在时间窗口内的全部行为洞察：
// 逐习惯统计、心情走势、情感聚合、习惯-心情相关性以及派生建议。
// 全部为只读计算，可与写路径并发执行。
type InsightService struct {
	db      *gorm.DB
	entries *HabitEntryService
}

// NewInsightService 构造 InsightService
func NewInsightService(gdb *gorm.DB) *InsightService {
	return &InsightService{db: gdb, entries: NewHabitEntryService(gdb)}
}

// InsightReport 是一次洞察计算的完整产物
type InsightReport struct {
	Start           string                  `json:"start"`
	End             string                  `json:"end"`
	Habits          HabitInsights           `json:"habit_insights"`
	Mood            MoodTrends              `json:"mood_trends"`
	Sentiment       *SentimentSummary       `json:"sentiment_analysis,omitempty"`
	Correlations    CorrelationSummary      `json:"correlations"`
	Recommendations []InsightRecommendation `json:"recommendations"`
}

// HabitInsight 描述单个习惯在窗口内的表现。
// CurrentStreak 从台账重新推导，不信任习惯上的缓存计数。
type HabitInsight struct {
	ID                   uint    `json:"id"`
	Name                 string  `json:"name"`
	Category             string  `json:"category"`
	CompletionPercentage float64 `json:"completion_percentage"`
	CurrentStreak        int     `json:"current_streak"`
	TotalCompletions     int     `json:"total_completions"`
	MissedDays           int     `json:"missed_days"`
}

// HabitInsights 汇总逐习惯统计及亮点
type HabitInsights struct {
	Habits         []HabitInsight `json:"habits"`
	MostConsistent *HabitInsight  `json:"most_consistent,omitempty"`
	LongestStreak  *HabitInsight  `json:"longest_streak,omitempty"`
}

// MoodEntryRef 引用构成某一天心情的日记条目
type MoodEntryRef struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Mood  int    `json:"mood"`
}

// MoodDay 描述窗口内心情最好/最差的一天
type MoodDay struct {
	Date        string         `json:"date"`
	MoodAverage float64        `json:"mood_average"`
	Entries     []MoodEntryRef `json:"entries"`
}

// MoodTrends 汇总按日心情均值与整体走势
type MoodTrends struct {
	DailyMoods  DailySeries `json:"daily_moods"`
	AverageMood *float64    `json:"average_mood,omitempty"`
	BestDay     *MoodDay    `json:"best_day,omitempty"`
	WorstDay    *MoodDay    `json:"worst_day,omitempty"`
}

// SentimentScores 是四个情感分数的均值
type SentimentScores struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

// SentimentEntryRef 引用情感最强的日记条目
type SentimentEntryRef struct {
	EntryID uint    `json:"entry_id"`
	Title   string  `json:"title"`
	Date    string  `json:"date"`
	Score   float64 `json:"score"`
}

// TopicWeight 表示一个高频话题及其累计权重
type TopicWeight struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// SentimentSummary 汇总窗口内所有情感分析结果；没有任何分析时整体为 nil
type SentimentSummary struct {
	Distribution  map[string]int     `json:"sentiment_distribution"`
	AverageScores SentimentScores    `json:"average_scores"`
	MostPositive  *SentimentEntryRef `json:"most_positive_entry,omitempty"`
	MostNegative  *SentimentEntryRef `json:"most_negative_entry,omitempty"`
	CommonTopics  []TopicWeight      `json:"common_topics"`
}

// CorrelationSummary 汇总习惯-心情相关性，按 |系数| 降序
type CorrelationSummary struct {
	HabitMoodCorrelations []CorrelationResult `json:"habit_mood_correlations"`
	StrongestPositive     *CorrelationResult  `json:"strongest_positive,omitempty"`
	StrongestNegative     *CorrelationResult  `json:"strongest_negative,omitempty"`
}

// InsightRecommendation 是报告内嵌的行动建议
type InsightRecommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Generate 计算用户在 [start, end] 窗口内的洞察报告。
// 缺失的上游数据（无日记、无情感分析、无习惯）只会让对应分区为空，
// 不会让整份报告失败。
func (s *InsightService) Generate(userID uint, start, end time.Time) (*InsightReport, error) {
	startDay := normalizeToDate(start)
	endDay := normalizeToDate(end)

	habits, err := s.loadHabits(userID)
	if err != nil {
		return nil, err
	}

	journalEntries, err := s.loadJournalEntries(userID, startDay, endDay)
	if err != nil {
		return nil, err
	}

	habitInsights, completionSeries, err := s.habitInsights(habits, startDay, endDay)
	if err != nil {
		return nil, err
	}

	mood := moodTrends(journalEntries)

	sentiment, err := s.sentimentSummary(journalEntries)
	if err != nil {
		return nil, err
	}

	correlations := correlationSummary(habits, completionSeries, mood.DailyMoods)

	report := &InsightReport{
		Start:           startDay.Format(dateLayout),
		End:             endDay.Format(dateLayout),
		Habits:          habitInsights,
		Mood:            mood,
		Sentiment:       sentiment,
		Correlations:    correlations,
		Recommendations: buildRecommendations(habitInsights, mood, correlations),
	}

	return report, nil
}

func (s *InsightService) loadHabits(userID uint) ([]db.Habit, error) {
	var habits []db.Habit
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("load habits: %w", err)
	}
	return habits, nil
}

func (s *InsightService) loadJournalEntries(userID uint, start, end time.Time) ([]db.JournalEntry, error) {
	var entries []db.JournalEntry
	if err := s.db.Where("user_id = ? AND entry_date BETWEEN ? AND ?", userID, start, end.AddDate(0, 0, 1).Add(-time.Nanosecond)).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load journal entries: %w", err)
	}
	return entries, nil
}

// habitInsights 逐习惯计算窗口统计，同时构造相关性所需的按日完成序列。
// 完成序列只包含应打卡日：打了记 1，没打记 0，保证序列有区分度。
func (s *InsightService) habitInsights(habits []db.Habit, start, end time.Time) (HabitInsights, map[uint]DailySeries, error) {
	insights := make([]HabitInsight, 0, len(habits))
	series := make(map[uint]DailySeries, len(habits))

	for _, habit := range habits {
		completed, err := s.entries.CompletedDates(habit.ID, start, end)
		if err != nil {
			return HabitInsights{}, nil, err
		}

		due, done, err := dueDoneCounts(habit, completed, start, end)
		if err != nil {
			return HabitInsights{}, nil, err
		}

		percentage := 0.0
		if due > 0 {
			percentage = math.Round(float64(done)/float64(due)*10000) / 100
		}

		streak, err := s.entries.RecomputeStreak(habit)
		if err != nil {
			return HabitInsights{}, nil, err
		}

		insights = append(insights, HabitInsight{
			ID:                   habit.ID,
			Name:                 habit.Name,
			Category:             habit.Category,
			CompletionPercentage: percentage,
			CurrentStreak:        streak,
			TotalCompletions:     done,
			MissedDays:           due - done,
		})

		series[habit.ID] = completionSeriesFor(habit, completed, start, end)
	}

	result := HabitInsights{Habits: insights}
	for i := range insights {
		if result.MostConsistent == nil || insights[i].CompletionPercentage > result.MostConsistent.CompletionPercentage {
			result.MostConsistent = &insights[i]
		}
		if result.LongestStreak == nil || insights[i].CurrentStreak > result.LongestStreak.CurrentStreak {
			result.LongestStreak = &insights[i]
		}
	}

	return result, series, nil
}

func completionSeriesFor(habit db.Habit, completed map[string]bool, start, end time.Time) DailySeries {
	rule, err := recurrence.New(habit.Frequency, habit.CustomDays, habit.CustomDates)
	if err != nil {
		return DailySeries{}
	}

	series := make(DailySeries)
	anchor := habit.AnchorDate()
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !recurrence.IsDue(rule, anchor, day) {
			continue
		}
		key := day.Format(dateLayout)
		if completed[key] {
			series[key] = 1
		} else {
			series[key] = 0
		}
	}
	return series
}

// moodTrends 按日聚合心情均值并标出最好/最差的一天，平分时取最早的日期
func moodTrends(entries []db.JournalEntry) MoodTrends {
	daily := make(DailySeries)
	byDay := make(map[string][]db.JournalEntry)
	sum := 0.0

	for _, entry := range entries {
		key := normalizeToDate(entry.EntryDate).Format(dateLayout)
		byDay[key] = append(byDay[key], entry)
		sum += float64(entry.Mood)
	}

	for key, dayEntries := range byDay {
		total := 0.0
		for _, entry := range dayEntries {
			total += float64(entry.Mood)
		}
		daily[key] = total / float64(len(dayEntries))
	}

	trends := MoodTrends{DailyMoods: daily}
	if len(entries) == 0 {
		return trends
	}

	average := sum / float64(len(entries))
	trends.AverageMood = &average

	days := make([]string, 0, len(daily))
	for key := range daily {
		days = append(days, key)
	}
	sort.Strings(days)

	bestKey, worstKey := days[0], days[0]
	for _, key := range days[1:] {
		if daily[key] > daily[bestKey] {
			bestKey = key
		}
		if daily[key] < daily[worstKey] {
			worstKey = key
		}
	}

	trends.BestDay = moodDay(bestKey, daily[bestKey], byDay[bestKey])
	trends.WorstDay = moodDay(worstKey, daily[worstKey], byDay[worstKey])
	return trends
}

func moodDay(date string, average float64, entries []db.JournalEntry) *MoodDay {
	refs := make([]MoodEntryRef, 0, len(entries))
	for _, entry := range entries {
		refs = append(refs, MoodEntryRef{ID: entry.ID, Title: entry.Title, Mood: entry.Mood})
	}
	return &MoodDay{Date: date, MoodAverage: average, Entries: refs}
}

// sentimentSummary 聚合窗口内日记的情感分析结果。
// 没有情感数据的日记直接跳过，上游分析失败不会影响报告其余部分。
func (s *InsightService) sentimentSummary(entries []db.JournalEntry) (*SentimentSummary, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	entryIDs := make([]uint, 0, len(entries))
	entryByID := make(map[uint]db.JournalEntry, len(entries))
	for _, entry := range entries {
		entryIDs = append(entryIDs, entry.ID)
		entryByID[entry.ID] = entry
	}

	var analyses []db.SentimentAnalysis
	if err := s.db.Where("journal_entry_id IN ?", entryIDs).
		Order("journal_entry_id ASC").
		Find(&analyses).Error; err != nil {
		return nil, fmt.Errorf("load sentiment analyses: %w", err)
	}
	if len(analyses) == 0 {
		return nil, nil
	}

	summary := &SentimentSummary{Distribution: make(map[string]int)}
	var scoreSum SentimentScores
	var mostPositive, mostNegative *db.SentimentAnalysis

	topicIndex := make(map[string]int)
	topics := make([]TopicWeight, 0)

	addTopic := func(item db.SentimentItem) {
		if item.Text == "" {
			return
		}
		if idx, ok := topicIndex[item.Text]; ok {
			topics[idx].Weight += item.Score
			return
		}
		topicIndex[item.Text] = len(topics)
		topics = append(topics, TopicWeight{Text: item.Text, Weight: item.Score})
	}

	for i := range analyses {
		analysis := analyses[i]
		summary.Distribution[analysis.PrimarySentiment]++
		scoreSum.Positive += analysis.PositiveScore
		scoreSum.Negative += analysis.NegativeScore
		scoreSum.Neutral += analysis.NeutralScore
		scoreSum.Mixed += analysis.MixedScore

		if mostPositive == nil || analysis.PositiveScore > mostPositive.PositiveScore {
			mostPositive = &analyses[i]
		}
		if mostNegative == nil || analysis.NegativeScore > mostNegative.NegativeScore {
			mostNegative = &analyses[i]
		}

		for _, item := range analysis.Entities {
			addTopic(item)
		}
		for _, item := range analysis.KeyPhrases {
			addTopic(item)
		}
	}

	count := float64(len(analyses))
	summary.AverageScores = SentimentScores{
		Positive: scoreSum.Positive / count,
		Negative: scoreSum.Negative / count,
		Neutral:  scoreSum.Neutral / count,
		Mixed:    scoreSum.Mixed / count,
	}

	summary.MostPositive = sentimentEntryRef(mostPositive, entryByID, mostPositive.PositiveScore)
	summary.MostNegative = sentimentEntryRef(mostNegative, entryByID, mostNegative.NegativeScore)

	// 按累计权重取前五，权重相同时保持首次出现的顺序
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Weight > topics[j].Weight
	})
	if len(topics) > 5 {
		topics = topics[:5]
	}
	summary.CommonTopics = topics

	return summary, nil
}

func sentimentEntryRef(analysis *db.SentimentAnalysis, entryByID map[uint]db.JournalEntry, score float64) *SentimentEntryRef {
	if analysis == nil {
		return nil
	}
	ref := &SentimentEntryRef{EntryID: analysis.JournalEntryID, Score: score}
	if entry, ok := entryByID[analysis.JournalEntryID]; ok {
		ref.Title = entry.Title
		ref.Date = normalizeToDate(entry.EntryDate).Format(dateLayout)
	}
	return ref
}

// correlationSummary 将每个习惯的完成序列与心情序列做相关，按 |系数| 降序
func correlationSummary(habits []db.Habit, completionSeries map[uint]DailySeries, moodSeries DailySeries) CorrelationSummary {
	results := make([]CorrelationResult, 0, len(habits))

	for _, habit := range habits {
		coefficient := correlate(moodSeries, completionSeries[habit.ID])
		results = append(results, CorrelationResult{
			HabitID:     habit.ID,
			HabitName:   habit.Name,
			Coefficient: coefficient,
			Strength:    correlationStrength(coefficient),
			Description: correlationDescription(habit.Name, coefficient),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return math.Abs(results[i].Coefficient) > math.Abs(results[j].Coefficient)
	})

	summary := CorrelationSummary{HabitMoodCorrelations: results}
	for i := range results {
		if summary.StrongestPositive == nil && results[i].Coefficient > 0 {
			summary.StrongestPositive = &results[i]
		}
		if summary.StrongestNegative == nil && results[i].Coefficient < 0 {
			summary.StrongestNegative = &results[i]
		}
	}
	return summary
}

// buildRecommendations 按固定优先级生成至多三条内嵌建议：
// 完成率最低且低于 50% 的习惯 → 最强正相关 → 平均心情低于 2 → 习惯数不足 3 时的新习惯。
func buildRecommendations(habits HabitInsights, mood MoodTrends, correlations CorrelationSummary) []InsightRecommendation {
	recommendations := make([]InsightRecommendation, 0, 4)

	var leastConsistent *HabitInsight
	for i := range habits.Habits {
		if leastConsistent == nil || habits.Habits[i].CompletionPercentage < leastConsistent.CompletionPercentage {
			leastConsistent = &habits.Habits[i]
		}
	}
	if leastConsistent != nil && leastConsistent.CompletionPercentage < 50 {
		recommendations = append(recommendations, InsightRecommendation{
			Type:  "habit_improvement",
			Title: fmt.Sprintf("提升「%s」的坚持度", leastConsistent.Name),
			Description: fmt.Sprintf("这个习惯的完成率只有 %.2f%%。试着为它固定一个时间段，或把它挂靠在一件每天必做的事情之后。",
				leastConsistent.CompletionPercentage),
		})
	}

	if correlations.StrongestPositive != nil {
		positive := correlations.StrongestPositive
		recommendations = append(recommendations, InsightRecommendation{
			Type:        "positive_correlation",
			Title:       fmt.Sprintf("继续保持「%s」", positive.HabitName),
			Description: fmt.Sprintf("「%s」与你的心情呈正相关。%s", positive.HabitName, positive.Description),
		})
	}

	if mood.AverageMood != nil && *mood.AverageMood < 2 {
		recommendations = append(recommendations, InsightRecommendation{
			Type:        "mood_improvement",
			Title:       "多做能改善状态的事情",
			Description: "这段时间你的平均心情偏低，可以有意识地增加运动、冥想或社交这类已被验证能改善状态的活动。",
		})
	}

	if len(habits.Habits) < 3 {
		existing := make(map[string]bool, len(habits.Habits))
		for _, habit := range habits.Habits {
			existing[habit.Category] = true
		}
		if candidate := firstMissingCategoryCandidate(existing); candidate != nil {
			recommendations = append(recommendations, InsightRecommendation{
				Type:        "new_habit",
				Title:       fmt.Sprintf("试试新习惯：%s", candidate.Name),
				Description: fmt.Sprintf("%s 与你情况相近的用户反馈这个习惯对状态有帮助。", candidate.Description),
			})
		}
	}

	if len(recommendations) > 3 {
		recommendations = recommendations[:3]
	}
	return recommendations
}

// firstMissingCategoryCandidate 按固定类别顺序找第一个未覆盖类别的首个候选，
// 内嵌建议需要可复现，这里不引入随机性
func firstMissingCategoryCandidate(existing map[string]bool) *habitCandidate {
	for _, category := range HabitCategories {
		if existing[category] {
			continue
		}
		pool := categoryCandidatePools[category]
		if len(pool) == 0 {
			continue
		}
		candidate := pool[0]
		candidate.Category = category
		return &candidate
	}
	return nil
}
