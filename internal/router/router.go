package router

import (
	"net/http"

	"github.com/Bulletdev/Mindfulness/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件，会话只承载"活跃用户"的选择
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("mindfulness_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/session", api.StartSession)
		apiGroup.GET("/session", api.CurrentSession)
		apiGroup.DELETE("/session", api.EndSession)

		apiGroup.GET("/users", api.ListUsers)
		apiGroup.POST("/users", api.CreateUser)
		apiGroup.GET("/users/:id", api.GetUser)
		apiGroup.GET("/users/:id/goals", api.ListGoals)
		apiGroup.POST("/users/:id/goals", api.AddGoal)

		apiGroup.GET("/habit-categories", api.ListHabitCategories)

		apiGroup.GET("/habits", api.ListHabits)
		apiGroup.POST("/habits", api.CreateHabit)
		apiGroup.GET("/habits/:id", api.GetHabit)
		apiGroup.PUT("/habits/:id", api.UpdateHabit)
		apiGroup.DELETE("/habits/:id", api.DeleteHabit)
		apiGroup.PUT("/habits/:id/archive", api.ArchiveHabit)
		apiGroup.POST("/habits/:id/checkin", api.CheckinHabit)
		apiGroup.DELETE("/habits/:id/checkin/:date", api.UncheckHabit)
		apiGroup.POST("/habits/:id/reset-streak", api.ResetHabitStreak)
		apiGroup.GET("/habits/:id/stats", api.GetHabitStats)

		apiGroup.GET("/journal", api.ListJournalEntries)
		apiGroup.POST("/journal", api.CreateJournalEntry)
		apiGroup.GET("/journal/:id", api.GetJournalEntry)
		apiGroup.PUT("/journal/:id", api.UpdateJournalEntry)
		apiGroup.DELETE("/journal/:id", api.DeleteJournalEntry)

		apiGroup.GET("/insights", api.GetInsights)
		apiGroup.GET("/recommendations", api.GetRecommendations)
	}

	return r
}
