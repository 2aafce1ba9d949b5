package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/service"
	"github.com/gin-gonic/gin"
)

type journalPayload struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Mood      int    `json:"mood"`
	EntryDate string `json:"entry_date"`
}

// ListJournalEntries 返回日记列表，支持日期与心情过滤
func (a *API) ListJournalEntries(c *gin.Context) {
	userID, ok := a.requireUserID(c)
	if !ok {
		return
	}

	filter := service.JournalFilter{UserID: userID}

	if raw := strings.TrimSpace(c.Query("start")); raw != "" {
		start, err := time.ParseInLocation(dateFormat, raw, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的开始日期")
			return
		}
		filter.Start = &start
	}
	if raw := strings.TrimSpace(c.Query("end")); raw != "" {
		end, err := time.ParseInLocation(dateFormat, raw, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的结束日期")
			return
		}
		filter.End = &end
	}
	if raw := strings.TrimSpace(c.Query("mood")); raw != "" {
		mood, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的心情等级")
			return
		}
		filter.Mood = &mood
	}

	entries, err := a.journal.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取日记列表失败")
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		item := journalToPayload(entry)
		item["snippet"] = a.journal.ContentSnippet(entry, 120)
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"entries": items})
}

// GetJournalEntry 返回单篇日记及其情感分析结果
func (a *API) GetJournalEntry(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日记ID")
		return
	}

	entry, err := a.journal.Get(id)
	if err != nil {
		handleJournalError(c, err)
		return
	}

	payload := gin.H{"entry": journalToPayload(*entry)}

	analysis, err := a.journal.Sentiment(entry.ID)
	if err == nil && analysis != nil {
		payload["sentiment"] = sentimentToPayload(*analysis)
	}

	c.JSON(http.StatusOK, payload)
}

// CreateJournalEntry 创建日记并尽力触发情感分析
func (a *API) CreateJournalEntry(c *gin.Context) {
	userID, ok := a.requireUserID(c)
	if !ok {
		return
	}

	input, ok := parseJournalInput(c, userID)
	if !ok {
		return
	}

	entry, err := a.journal.Create(c.Request.Context(), input)
	if err != nil {
		handleJournalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": journalToPayload(*entry)})
}

// UpdateJournalEntry 更新日记；内容变化时重新分析情感
func (a *API) UpdateJournalEntry(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日记ID")
		return
	}

	existing, err := a.journal.Get(id)
	if err != nil {
		handleJournalError(c, err)
		return
	}

	input, ok := parseJournalInput(c, existing.UserID)
	if !ok {
		return
	}

	entry, err := a.journal.Update(c.Request.Context(), id, input)
	if err != nil {
		handleJournalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": journalToPayload(*entry)})
}

// DeleteJournalEntry 删除日记及其情感分析结果
func (a *API) DeleteJournalEntry(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日记ID")
		return
	}

	if err := a.journal.Delete(id); err != nil {
		respondError(c, http.StatusInternalServerError, "删除日记失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func parseJournalInput(c *gin.Context, userID uint) (service.JournalInput, bool) {
	var payload journalPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return service.JournalInput{}, false
	}

	input := service.JournalInput{
		UserID:  userID,
		Title:   payload.Title,
		Content: payload.Content,
		Mood:    payload.Mood,
	}

	if strings.TrimSpace(payload.EntryDate) != "" {
		entryDate, err := time.ParseInLocation(dateFormat, payload.EntryDate, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的日记日期")
			return service.JournalInput{}, false
		}
		input.EntryDate = entryDate
	}

	return input, true
}

func journalToPayload(entry db.JournalEntry) gin.H {
	return gin.H{
		"id":         entry.ID,
		"user_id":    entry.UserID,
		"title":      entry.Title,
		"content":    entry.Content,
		"mood":       entry.Mood,
		"entry_date": entry.EntryDate.Format(dateFormat),
	}
}

func sentimentToPayload(analysis db.SentimentAnalysis) gin.H {
	return gin.H{
		"language":          analysis.Language,
		"primary_sentiment": analysis.PrimarySentiment,
		"scores": gin.H{
			"positive": analysis.PositiveScore,
			"negative": analysis.NegativeScore,
			"neutral":  analysis.NeutralScore,
			"mixed":    analysis.MixedScore,
		},
		"entities":    analysis.Entities,
		"key_phrases": analysis.KeyPhrases,
	}
}

func handleJournalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		respondError(c, http.StatusNotFound, "日记不存在")
	case errors.Is(err, service.ErrInvalidMood):
		respondError(c, http.StatusBadRequest, "心情等级应在 0 到 4 之间")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
