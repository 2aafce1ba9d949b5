package service

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/recurrence"
	"gorm.io/gorm"
)

// Recommendation 是推荐引擎的输出，仅在请求期间存在，不落库
type Recommendation struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Frequency   string `json:"frequency,omitempty"`
}

// habitCandidate 是策略候选池中的条目
type habitCandidate struct {
	Name        string
	Category    string
	Description string
	Frequency   string
	Popularity  int
}

// categoryCandidatePools 按类别给出候选习惯，顺序固定
var categoryCandidatePools = map[string][]habitCandidate{
	"exercise": {
		{Name: "15 分钟散步", Description: "每天一段短途散步，就能改善心情和精力。", Frequency: recurrence.FreqDaily},
		{Name: "晨间拉伸", Description: "起床后 5 分钟拉伸，唤醒身体。", Frequency: recurrence.FreqDaily},
		{Name: "关节活动操", Description: "简单的活动度训练，保持关节健康。", Frequency: recurrence.FreqWeekdays},
	},
	"meditation": {
		{Name: "引导冥想", Description: "10 分钟引导冥想，缓解焦虑。", Frequency: recurrence.FreqDaily},
		{Name: "觉察呼吸", Description: "白天抽 2 分钟做深呼吸练习。", Frequency: recurrence.FreqDaily},
		{Name: "身体扫描", Description: "花 5 分钟依次放松身体的每个部位。", Frequency: recurrence.FreqDaily},
	},
	"sleep": {
		{Name: "固定就寝时间", Description: "每晚同一时间入睡能显著改善睡眠质量。", Frequency: recurrence.FreqDaily},
		{Name: "睡前放松流程", Description: "睡前 15 分钟远离屏幕。", Frequency: recurrence.FreqDaily},
		{Name: "睡眠环境整理", Description: "营造黑暗凉爽的卧室环境。", Frequency: recurrence.FreqWeekly},
	},
	"nutrition": {
		{Name: "营养早餐", Description: "用一顿均衡的早餐开启一天。", Frequency: recurrence.FreqDaily},
		{Name: "规律补水", Description: "全天有规律地喝水。", Frequency: recurrence.FreqDaily},
		{Name: "每周备餐", Description: "提前规划健康的餐食。", Frequency: recurrence.FreqWeekly},
	},
	"social": {
		{Name: "每日社交联络", Description: "每天和一个人进行有意义的交流。", Frequency: recurrence.FreqDaily},
		{Name: "离线相处时间", Description: "放下设备，留出面对面相处的时间。", Frequency: recurrence.FreqWeekends},
		{Name: "定期志愿服务", Description: "帮助他人能加深社交连结。", Frequency: recurrence.FreqWeekly},
	},
	"learning": {
		{Name: "每日阅读", Description: "每天 15 分钟阅读，保持头脑活跃。", Frequency: recurrence.FreqDaily},
		{Name: "学点新东西", Description: "固定投入时间学习一项新技能。", Frequency: recurrence.FreqWeekdays},
		{Name: "外语练习", Description: "每天 10 分钟外语学习。", Frequency: recurrence.FreqDaily},
	},
	"mindfulness": {
		{Name: "感恩练习", Description: "每天写下 3 件值得感恩的事。", Frequency: recurrence.FreqDaily},
		{Name: "回到当下", Description: "白天停下来留意自己的感官。", Frequency: recurrence.FreqDaily},
		{Name: "情绪签到", Description: "定期识别并接纳自己的情绪。", Frequency: recurrence.FreqDaily},
	},
	"other": {
		{Name: "自我复盘", Description: "留出时间回顾自己的目标与成长。", Frequency: recurrence.FreqWeekly},
		{Name: "每日规划", Description: "在前一晚或清晨规划好当天。", Frequency: recurrence.FreqDaily},
		{Name: "亲近自然", Description: "定期到户外走走，对身心都有益。", Frequency: recurrence.FreqWeekends},
	},
}

// popularHabitPool 是静态的热门习惯榜单，按 Popularity 降序取用
var popularHabitPool = []habitCandidate{
	{Name: "晨间冥想", Category: "meditation", Description: "起床后 10 分钟冥想，清醒地开始一天。", Popularity: 85, Frequency: recurrence.FreqDaily},
	{Name: "感恩日记", Category: "mindfulness", Description: "每天记录 3 件感恩的事。", Popularity: 78, Frequency: recurrence.FreqDaily},
	{Name: "数字断联", Category: "mindfulness", Description: "睡前 30 分钟不碰电子设备。", Popularity: 72, Frequency: recurrence.FreqDaily},
	{Name: "有意识补水", Category: "nutrition", Description: "白天每两小时喝一杯水。", Popularity: 68, Frequency: recurrence.FreqDaily},
	{Name: "睡前阅读", Category: "learning", Description: "睡前 20 分钟阅读放松大脑。", Popularity: 65, Frequency: recurrence.FreqDaily},
	{Name: "全身拉伸", Category: "exercise", Description: "5 分钟拉伸改善柔韧性和体态。", Popularity: 63, Frequency: recurrence.FreqDaily},
}

// goalCandidatePools 按目标类别映射候选习惯
var goalCandidatePools = map[string][]habitCandidate{
	"fitness": {
		{Name: "每日短时训练", Category: "exercise", Description: "10 分钟高强度训练，高效利用时间。", Frequency: recurrence.FreqDaily},
		{Name: "体测记录", Category: "mindfulness", Description: "跟踪自己的进展以保持动力。", Frequency: recurrence.FreqWeekly},
	},
	"mental_health": {
		{Name: "正念练习", Category: "mindfulness", Description: "5 分钟专注冥想，缓解压力。", Frequency: recurrence.FreqDaily},
		{Name: "限制新闻摄入", Category: "other", Description: "减少刷新闻的时间以降低焦虑。", Frequency: recurrence.FreqDaily},
	},
	"productivity": {
		{Name: "晨间规划", Category: "other", Description: "开始工作前花 5 分钟确定优先级。", Frequency: recurrence.FreqWeekdays},
		{Name: "番茄工作法", Category: "other", Description: "以 25 分钟专注加短休息的节奏工作。", Frequency: recurrence.FreqWeekdays},
	},
	"learning": {
		{Name: "每日学习时段", Category: "learning", Description: "每天投入 20 分钟学习新知识。", Frequency: recurrence.FreqDaily},
		{Name: "每周回顾", Category: "learning", Description: "回顾一周所学以巩固记忆。", Frequency: recurrence.FreqWeekly},
	},
}

// 低/中/高心情桶对应的候选池
var (
	lowMoodCandidates = []habitCandidate{
		{Name: "户外散步", Category: "exercise", Description: "轻度户外运动能促进内啡肽分泌，改善心情。", Frequency: recurrence.FreqDaily},
		{Name: "每日社交联络", Category: "social", Description: "和朋友或家人聊聊，避免把自己孤立起来。", Frequency: recurrence.FreqDaily},
		{Name: "舒缓冥想", Category: "meditation", Description: "针对焦虑情绪的冥想练习。", Frequency: recurrence.FreqDaily},
	}
	midMoodCandidates = []habitCandidate{
		{Name: "感恩练习", Category: "mindfulness", Description: "记录感恩的事能提升幸福感。", Frequency: recurrence.FreqDaily},
		{Name: "创意爱好", Category: "learning", Description: "投入创造性活动能带来满足感。", Frequency: recurrence.FreqWeekdays},
	}
	highMoodCandidates = []habitCandidate{
		{Name: "胜利记录", Category: "mindfulness", Description: "记下自己的成就，强化正向行为。", Frequency: recurrence.FreqDaily},
		{Name: "传递善意", Category: "social", Description: "帮助别人或真诚地夸奖一个人。", Frequency: recurrence.FreqDaily},
	}
	volatileMoodCandidates = []habitCandidate{
		{Name: "规律作息", Category: "sleep", Description: "固定的用餐和睡眠时间有助于稳定情绪。", Frequency: recurrence.FreqDaily},
		{Name: "情绪签到", Category: "mindfulness", Description: "白天花几个短暂的片刻觉察自己的状态。", Frequency: recurrence.FreqDaily},
	}
)

// 一致性分桶对应的候选池
var (
	lowConsistencyCandidates = []habitCandidate{
		{Name: "微习惯", Category: "other", Description: "从小到不可能失败的习惯开始（30 秒即可）。", Frequency: recurrence.FreqDaily},
		{Name: "习惯挂靠", Category: "other", Description: "把新习惯挂在一件你每天都做的事情后面。", Frequency: recurrence.FreqDaily},
		{Name: "每周一次", Category: "other", Description: "先承诺每周一次而不是每天，建立信心。", Frequency: recurrence.FreqWeekly},
	}
	midConsistencyCandidates = []habitCandidate{
		{Name: "环境准备", Category: "other", Description: "整理环境，让习惯更容易发生。", Frequency: recurrence.FreqWeekly},
		{Name: "习惯复盘", Category: "mindfulness", Description: "每周固定时间回顾并调整自己的习惯。", Frequency: recurrence.FreqWeekly},
		{Name: "庆祝小胜利", Category: "mindfulness", Description: "定期认可并庆祝自己的进步。", Frequency: recurrence.FreqDaily},
	}
	highConsistencyCandidates = []habitCandidate{
		{Name: "渐进挑战", Category: "other", Description: "逐步提高现有习惯的难度。", Frequency: recurrence.FreqDaily},
		{Name: "习惯组合", Category: "other", Description: "把两个现有习惯组合起来提升效率。", Frequency: recurrence.FreqDaily},
		{Name: "分享进展", Category: "social", Description: "向他人公开自己的进展，增加自我约束。", Frequency: recurrence.FreqWeekly},
	}
)

// RecommenderService 将五个独立的弱信号策略合成一份去重且限量的建议列表。
// 随机源显式注入，默认按时间播种；测试可通过 WithRand 固定种子保证可复现。
type RecommenderService struct {
	db      *gorm.DB
	entries *HabitEntryService
	rng     *rand.Rand
}

// NewRecommenderService 构造 RecommenderService
func NewRecommenderService(gdb *gorm.DB) *RecommenderService {
	return &RecommenderService{
		db:      gdb,
		entries: NewHabitEntryService(gdb),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand 覆盖随机源，主要用于测试
func (s *RecommenderService) WithRand(rng *rand.Rand) *RecommenderService {
	if rng != nil {
		s.rng = rng
	}
	return s
}

// Recommend 依次执行五个策略（缺类别、心情模式、热门榜、用户目标、一致性），
// 每个策略至多贡献 2 条；合并后按名称去重（先出现者保留）并截断到 limit。
// 任何策略在数据不足时返回空列表而不是报错。
func (s *RecommenderService) Recommend(userID uint, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 3
	}

	const perStrategy = 2
	combined := make([]Recommendation, 0, 5*perStrategy)

	strategies := []func(uint, int) ([]Recommendation, error){
		s.recommendByMissingCategories,
		s.recommendByMoodPatterns,
		s.recommendByPopularHabits,
		s.recommendByUserGoals,
		s.recommendByConsistency,
	}

	for _, strategy := range strategies {
		recommendations, err := strategy(userID, perStrategy)
		if err != nil {
			return nil, err
		}
		combined = append(combined, recommendations...)
	}

	seen := make(map[string]bool, len(combined))
	deduped := make([]Recommendation, 0, limit)
	for _, recommendation := range combined {
		if seen[recommendation.Name] {
			continue
		}
		seen[recommendation.Name] = true
		deduped = append(deduped, recommendation)
		if len(deduped) == limit {
			break
		}
	}

	return deduped, nil
}

// recommendByMissingCategories 推荐用户从未涉足的类别；
// 所有类别都覆盖时退而推荐打卡最少的 3 个类别
func (s *RecommenderService) recommendByMissingCategories(userID uint, limit int) ([]Recommendation, error) {
	existing, err := s.existingCategories(userID)
	if err != nil {
		return nil, err
	}

	missing := make([]string, 0, len(HabitCategories))
	for _, category := range HabitCategories {
		if !existing[category] {
			missing = append(missing, category)
		}
	}

	if len(missing) == 0 {
		missing, err = s.leastUsedCategories(userID, 3)
		if err != nil {
			return nil, err
		}
	}

	picked := s.sampleStrings(missing, limit)
	recommendations := make([]Recommendation, 0, len(picked))
	for _, category := range picked {
		pool := categoryCandidatePools[category]
		if len(pool) == 0 {
			continue
		}
		candidate := pool[s.rng.Intn(len(pool))]

		// 频率不直接取候选池预设，而是结合名称与用户既有偏好推断
		frequency, err := s.suggestFrequency(userID, candidate.Name)
		if err != nil {
			return nil, err
		}

		recommendations = append(recommendations, Recommendation{
			Name:        candidate.Name,
			Category:    category,
			Description: candidate.Description,
			Source:      "missing_category",
			Frequency:   frequency,
		})
	}

	return recommendations, nil
}

// recommendByMoodPatterns 基于最近 30 篇日记的心情分布推荐；
// 样本少于 5 篇时不产出。标准差超过 1.2 视为情绪波动大，追加稳定类候选。
func (s *RecommenderService) recommendByMoodPatterns(userID uint, limit int) ([]Recommendation, error) {
	var entries []db.JournalEntry
	if err := s.db.Where("user_id = ?", userID).
		Order("entry_date DESC, id DESC").
		Limit(30).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load recent entries: %w", err)
	}

	if len(entries) < 5 {
		return nil, nil
	}

	moods := make([]float64, 0, len(entries))
	sum := 0.0
	for _, entry := range entries {
		moods = append(moods, float64(entry.Mood))
		sum += float64(entry.Mood)
	}
	average := sum / float64(len(moods))

	var pool []habitCandidate
	switch {
	case average < 2:
		pool = append(pool, lowMoodCandidates...)
	case average < 3:
		pool = append(pool, midMoodCandidates...)
	default:
		pool = append(pool, highMoodCandidates...)
	}

	if stddev(moods, average) > 1.2 {
		pool = append(pool, volatileMoodCandidates...)
	}

	return s.sampleCandidates(pool, limit, "mood_pattern"), nil
}

// recommendByPopularHabits 从静态热门榜单取未拥有的习惯，按热度降序
func (s *RecommenderService) recommendByPopularHabits(userID uint, limit int) ([]Recommendation, error) {
	existingNames, err := s.existingHabitNames(userID)
	if err != nil {
		return nil, err
	}

	filtered := make([]habitCandidate, 0, len(popularHabitPool))
	for _, candidate := range popularHabitPool {
		if !existingNames[candidate.Name] {
			filtered = append(filtered, candidate)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Popularity > filtered[j].Popularity
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	recommendations := make([]Recommendation, 0, len(filtered))
	for _, candidate := range filtered {
		recommendations = append(recommendations, Recommendation{
			Name:        candidate.Name,
			Category:    candidate.Category,
			Description: candidate.Description,
			Source:      "popular_habit",
			Frequency:   candidate.Frequency,
		})
	}
	return recommendations, nil
}

// recommendByUserGoals 仅在用户声明过目标时生效，按目标类别映射候选池
func (s *RecommenderService) recommendByUserGoals(userID uint, limit int) ([]Recommendation, error) {
	var goals []db.Goal
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	existingNames, err := s.existingHabitNames(userID)
	if err != nil {
		return nil, err
	}

	pool := make([]habitCandidate, 0)
	for _, goal := range goals {
		pool = append(pool, goalCandidatePools[goal.Category]...)
	}

	filtered := pool[:0]
	for _, candidate := range pool {
		if !existingNames[candidate.Name] {
			filtered = append(filtered, candidate)
		}
	}

	return s.sampleCandidates(filtered, limit, "user_goal"), nil
}

// recommendByConsistency 按活跃习惯近 30 天的平均完成率分桶推荐
func (s *RecommenderService) recommendByConsistency(userID uint, limit int) ([]Recommendation, error) {
	var habits []db.Habit
	if err := s.db.Where("user_id = ? AND archived = ?", userID, false).
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("load active habits: %w", err)
	}

	averageRate := 0.0
	if len(habits) > 0 {
		now := time.Now()
		total := 0.0
		for _, habit := range habits {
			rate, err := s.entries.CompletionRate(habit, now.AddDate(0, 0, -30), now)
			if err != nil {
				return nil, err
			}
			total += rate
		}
		averageRate = total / float64(len(habits))
	}

	var pool []habitCandidate
	switch {
	case averageRate < 30:
		pool = lowConsistencyCandidates
	case averageRate > 80:
		pool = highConsistencyCandidates
	default:
		pool = midConsistencyCandidates
	}

	existingNames, err := s.existingHabitNames(userID)
	if err != nil {
		return nil, err
	}

	filtered := make([]habitCandidate, 0, len(pool))
	for _, candidate := range pool {
		if !existingNames[candidate.Name] {
			filtered = append(filtered, candidate)
		}
	}

	return s.sampleCandidates(filtered, limit, "consistency"), nil
}

// 辅助方法

func (s *RecommenderService) existingCategories(userID uint) (map[string]bool, error) {
	var categories []string
	if err := s.db.Model(&db.Habit{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("load habit categories: %w", err)
	}

	existing := make(map[string]bool, len(categories))
	for _, category := range categories {
		existing[category] = true
	}
	return existing, nil
}

func (s *RecommenderService) existingHabitNames(userID uint) (map[string]bool, error) {
	var names []string
	if err := s.db.Model(&db.Habit{}).
		Where("user_id = ?", userID).
		Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("load habit names: %w", err)
	}

	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[name] = true
	}
	return existing, nil
}

// leastUsedCategories 按打卡记录数升序返回使用最少的 n 个类别
func (s *RecommenderService) leastUsedCategories(userID uint, n int) ([]string, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	if err := s.db.Model(&db.HabitEntry{}).
		Select("habits.category AS category, COUNT(habit_entries.id) AS count").
		Joins("JOIN habits ON habits.id = habit_entries.habit_id").
		Where("habits.user_id = ?", userID).
		Group("habits.category").
		Order("count ASC").
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("count completions by category: %w", err)
	}

	categories := make([]string, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, row.Category)
	}
	return categories, nil
}

// suggestFrequency 根据习惯名称猜测合适的频率，猜不中时回退到用户最常用的频率
func (s *RecommenderService) suggestFrequency(userID uint, habitName string) (string, error) {
	name := strings.ToLower(habitName)
	switch {
	case strings.Contains(name, "每日") || strings.Contains(name, "每天") ||
		strings.Contains(name, "晨") || strings.Contains(name, "睡前"):
		return recurrence.FreqDaily, nil
	case strings.Contains(name, "工作") || strings.Contains(name, "学习") ||
		strings.Contains(name, "番茄"):
		return recurrence.FreqWeekdays, nil
	case strings.Contains(name, "放松") || strings.Contains(name, "休息"):
		return recurrence.FreqWeekends, nil
	case strings.Contains(name, "每周"):
		return recurrence.FreqWeekly, nil
	case strings.Contains(name, "每月"):
		return recurrence.FreqMonthly, nil
	}

	var rows []struct {
		Frequency string
		Count     int64
	}
	if err := s.db.Model(&db.Habit{}).
		Select("frequency, COUNT(id) AS count").
		Where("user_id = ?", userID).
		Group("frequency").
		Order("count DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return "", fmt.Errorf("count habit frequencies: %w", err)
	}
	if len(rows) > 0 && rows[0].Frequency != "" {
		return rows[0].Frequency, nil
	}
	return recurrence.FreqDaily, nil
}

// sampleCandidates 从候选池随机抽取至多 limit 条并格式化为推荐
func (s *RecommenderService) sampleCandidates(pool []habitCandidate, limit int, source string) []Recommendation {
	if len(pool) == 0 {
		return nil
	}

	indexes := s.rng.Perm(len(pool))
	if len(indexes) > limit {
		indexes = indexes[:limit]
	}

	recommendations := make([]Recommendation, 0, len(indexes))
	for _, idx := range indexes {
		candidate := pool[idx]
		recommendations = append(recommendations, Recommendation{
			Name:        candidate.Name,
			Category:    candidate.Category,
			Description: candidate.Description,
			Source:      source,
			Frequency:   candidate.Frequency,
		})
	}
	return recommendations
}

func (s *RecommenderService) sampleStrings(values []string, limit int) []string {
	if len(values) == 0 {
		return nil
	}

	indexes := s.rng.Perm(len(values))
	if len(indexes) > limit {
		indexes = indexes[:limit]
	}

	picked := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		picked = append(picked, values[idx])
	}
	return picked
}

func stddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}

	variance := 0.0
	for _, value := range values {
		diff := value - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}
