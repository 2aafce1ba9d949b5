package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// 洞察窗口的默认长度
const defaultInsightWindowDays = 30

// GetInsights 计算并返回活跃用户在时间窗口内的洞察报告
func (a *API) GetInsights(c *gin.Context) {
	userID, ok := a.requireUserID(c)
	if !ok {
		return
	}

	now := time.Now()
	end, ok := parseDateQuery(c, "end", now)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}
	start, ok := parseDateQuery(c, "start", end.AddDate(0, 0, -defaultInsightWindowDays+1))
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	if start.After(end) {
		respondError(c, http.StatusBadRequest, "开始日期不能晚于结束日期")
		return
	}

	report, err := a.insights.Generate(userID, start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "生成洞察报告失败")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetRecommendations 返回活跃用户的习惯推荐
func (a *API) GetRecommendations(c *gin.Context) {
	userID, ok := a.requireUserID(c)
	if !ok {
		return
	}

	limit := 3
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, http.StatusBadRequest, "无效的推荐数量")
			return
		}
		limit = parsed
	}

	recommendations, err := a.recommender.Recommend(userID, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "生成推荐失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}
