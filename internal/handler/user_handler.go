package handler

import (
	"errors"
	"net/http"

	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/service"
	"github.com/gin-gonic/gin"
)

// ListUsers 返回全部用户
func (a *API) ListUsers(c *gin.Context) {
	users, err := a.users.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取用户列表失败")
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, user := range users {
		items = append(items, userToPayload(user))
	}
	c.JSON(http.StatusOK, gin.H{"users": items})
}

// GetUser 返回单个用户
func (a *API) GetUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	user, err := a.users.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "加载用户失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// CreateUser 创建用户
func (a *API) CreateUser(c *gin.Context) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Timezone string `json:"timezone"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	user, err := a.users.Create(service.UserInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Timezone: payload.Timezone,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// AddGoal 为用户追加目标
func (a *API) AddGoal(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	var payload struct {
		Category string `json:"category"`
		Name     string `json:"name"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	goal, err := a.users.AddGoal(id, payload.Category, payload.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "用户不存在")
		case errors.Is(err, service.ErrGoalInvalidCategory):
			respondError(c, http.StatusBadRequest, "目标类别无效")
		default:
			respondError(c, http.StatusInternalServerError, "创建目标失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goalToPayload(*goal)})
}

// ListGoals 返回用户的全部目标
func (a *API) ListGoals(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	goals, err := a.users.Goals(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取目标列表失败")
		return
	}

	items := make([]gin.H, 0, len(goals))
	for _, goal := range goals {
		items = append(items, goalToPayload(goal))
	}
	c.JSON(http.StatusOK, gin.H{"goals": items})
}

func userToPayload(user db.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"public_id": user.PublicID,
		"name":      user.Name,
		"email":     user.Email,
		"timezone":  user.Timezone,
	}
}

func goalToPayload(goal db.Goal) gin.H {
	return gin.H{
		"id":       goal.ID,
		"user_id":  goal.UserID,
		"category": goal.Category,
		"name":     goal.Name,
	}
}
