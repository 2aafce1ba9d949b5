package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/recurrence"
	"github.com/Bulletdev/Mindfulness/internal/service"
	"github.com/gin-gonic/gin"
)

type habitPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	CustomDays  []int  `json:"custom_days"`
	CustomDates []int  `json:"custom_dates"`
	StartDate   string `json:"start_date"`
	Archived    bool   `json:"archived"`
}

// ListHabits 返回习惯列表 JSON
func (a *API) ListHabits(c *gin.Context) {
	userID, ok := a.requireUserID(c)
	if !ok {
		return
	}

	filter := service.HabitFilter{
		UserID:   userID,
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw := strings.TrimSpace(c.Query("archived")); raw != "" {
		archived := raw == "true" || raw == "1"
		filter.Archived = &archived
	}

	habits, err := a.habits.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}
	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// ListHabitCategories 返回封闭的类别集合
func (a *API) ListHabitCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": service.HabitCategories})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(id)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	userID, ok := a.requireUserID(c)
	if !ok {
		return
	}

	input, ok := parseHabitInput(c, userID)
	if !ok {
		return
	}

	habit, err := a.habits.Create(input)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	existing, err := a.habits.Get(id)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	input, ok := parseHabitInput(c, existing.UserID)
	if !ok {
		return
	}

	habit, err := a.habits.Update(id, input)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// ArchiveHabit 归档或恢复习惯
func (a *API) ArchiveHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload struct {
		Archived bool `json:"archived"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.SetArchived(id, payload.Archived)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// DeleteHabit 删除习惯及其打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Delete(id); err != nil {
		respondError(c, http.StatusInternalServerError, "删除习惯失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CheckinHabit 为习惯打卡；非打卡日与重复打卡都返回明确的状态而不报错
func (a *API) CheckinHabit(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload struct {
		Date   string  `json:"date"`
		Value  float64 `json:"value"`
		Source string  `json:"source"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	date := time.Now()
	if strings.TrimSpace(payload.Date) != "" {
		parsed, err := time.ParseInLocation(dateFormat, payload.Date, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的打卡日期")
			return
		}
		date = parsed
	}

	source := strings.TrimSpace(payload.Source)
	if source == "" {
		source = "manual"
	}

	outcome, err := a.habitEntries.RecordCompletion(habitID, date, payload.Value, source)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome": string(outcome),
		"date":    date.Format(dateFormat),
	})
}

// UncheckHabit 撤销指定日期的打卡
func (a *API) UncheckHabit(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	date, err := time.ParseInLocation(dateFormat, c.Param("date"), time.Local)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡日期")
		return
	}

	outcome, err := a.habitEntries.RemoveCompletion(habitID, date)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome": string(outcome),
		"date":    date.Format(dateFormat),
	})
}

// ResetHabitStreak 清零当前连胜
func (a *API) ResetHabitStreak(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habitEntries.ResetStreak(habitID); err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// GetHabitStats 返回日期区间内的打卡数据和统计
func (a *API) GetHabitStats(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(habitID)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	now := time.Now()
	defaultStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	start, ok := parseDateQuery(c, "start", defaultStart)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	end, ok := parseDateQuery(c, "end", now)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}

	completed, err := a.habitEntries.CompletedDates(habit.ID, start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取打卡记录失败")
		return
	}

	rate, err := a.habitEntries.CompletionRate(*habit, start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算完成率失败")
		return
	}

	streak, err := a.habitEntries.RecomputeStreak(*habit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算连胜失败")
		return
	}

	missed, err := a.habitEntries.MissedDays(*habit, now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算漏打天数失败")
		return
	}

	dates := make([]string, 0, len(completed))
	for date := range completed {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	c.JSON(http.StatusOK, gin.H{
		"habit": habitToPayload(*habit),
		"stats": gin.H{
			"range_start":       start.Format(dateFormat),
			"range_end":         end.Format(dateFormat),
			"completion_rate":   rate,
			"completed_dates":   dates,
			"current_streak":    streak,
			"longest_streak":    habit.LongestStreak,
			"total_completions": habit.TotalCompletions,
			"missed_days":       missed,
		},
	})
}

func parseHabitInput(c *gin.Context, userID uint) (service.HabitInput, bool) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return service.HabitInput{}, false
	}

	startPtr, ok := parseOptionalDate(payload.StartDate)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return service.HabitInput{}, false
	}

	return service.HabitInput{
		UserID:      userID,
		Name:        payload.Name,
		Description: payload.Description,
		Category:    payload.Category,
		Frequency:   payload.Frequency,
		CustomDays:  payload.CustomDays,
		CustomDates: payload.CustomDates,
		StartDate:   startPtr,
		Archived:    payload.Archived,
	}, true
}

func habitToPayload(habit db.Habit) gin.H {
	item := gin.H{
		"id":                habit.ID,
		"user_id":           habit.UserID,
		"name":              habit.Name,
		"description":       habit.Description,
		"category":          habit.Category,
		"frequency":         habit.Frequency,
		"archived":          habit.Archived,
		"current_streak":    habit.CurrentStreak,
		"longest_streak":    habit.LongestStreak,
		"total_completions": habit.TotalCompletions,
	}

	if len(habit.CustomDays) > 0 {
		item["custom_days"] = habit.CustomDays
	}
	if len(habit.CustomDates) > 0 {
		item["custom_dates"] = habit.CustomDates
	}
	if habit.StartDate != nil {
		item["start_date"] = habit.StartDate.Format(dateFormat)
	}
	if habit.LastCompletedAt != nil {
		item["last_completed_at"] = habit.LastCompletedAt.Format(time.RFC3339)
	}

	return item
}

func handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitInvalidCategory):
		respondError(c, http.StatusBadRequest, "习惯类别无效")
	case errors.Is(err, recurrence.ErrUnknownFrequency),
		errors.Is(err, recurrence.ErrEmptyCustomRule),
		errors.Is(err, recurrence.ErrCustomValueOutOfRange):
		respondError(c, http.StatusBadRequest, "周期规则无效")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
