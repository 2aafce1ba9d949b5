package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Bulletdev/Mindfulness/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionUserKey = "active_user_id"

// StartSession 选定后续请求默认使用的活跃用户
func (a *API) StartSession(c *gin.Context) {
	var payload struct {
		UserID uint `json:"user_id"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	user, err := a.users.Get(payload.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "加载用户失败")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "保存会话失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// CurrentSession 返回会话中的活跃用户
func (a *API) CurrentSession(c *gin.Context) {
	userID, ok := a.activeUserID(c)
	if !ok {
		respondError(c, http.StatusNotFound, "尚未选择用户")
		return
	}

	user, err := a.users.Get(userID)
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

// EndSession 清除会话中的活跃用户
func (a *API) EndSession(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionUserKey)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "保存会话失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// activeUserID 先看 user_id 查询参数，再落回会话中的活跃用户
func (a *API) activeUserID(c *gin.Context) (uint, bool) {
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil && id > 0 {
			return uint(id), true
		}
		return 0, false
	}

	session := sessions.Default(c)
	if value := session.Get(sessionUserKey); value != nil {
		if id, ok := value.(uint); ok && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// requireUserID 解析活跃用户，缺失时直接响应 400
func (a *API) requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := a.activeUserID(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "请先选择用户或提供 user_id 参数")
		return 0, false
	}
	return userID, true
}
