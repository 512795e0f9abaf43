// Package httpapi — admin.go: маршруты /api/admin. Всё, кроме входа,
// требует Bearer-токена сессии (requireAdmin).
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/results"
)

type loginRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, err := h.deps.Auth.Login(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": session.Token,
		"token_type":   "Bearer",
		"expires_at":   session.ExpiresAt,
	})
}

func adminID(c *gin.Context) int64 {
	return c.GetInt64(adminIDKey)
}

type creditsRequest struct {
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

func (h *handler) bindCredits(c *gin.Context, needUser bool) (creditsRequest, bool) {
	var req creditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return req, false
	}
	if needUser && req.UserID <= 0 {
		badRequest(c, "user_id обязателен")
		return req, false
	}
	return req, true
}

func (h *handler) adminAddCredits(c *gin.Context) {
	req, ok := h.bindCredits(c, true)
	if !ok {
		return
	}
	acc, err := h.deps.Ledger.AdminAddCredits(c.Request.Context(), adminID(c), req.UserID, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc})
}

func (h *handler) adminRemoveCredits(c *gin.Context) {
	req, ok := h.bindCredits(c, true)
	if !ok {
		return
	}
	acc, err := h.deps.Ledger.AdminRemoveCredits(c.Request.Context(), adminID(c), req.UserID, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc})
}

func (h *handler) adminGrantAll(c *gin.Context) {
	req, ok := h.bindCredits(c, false)
	if !ok {
		return
	}
	n, err := h.deps.Ledger.AdminGrantAll(c.Request.Context(), adminID(c), req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": n})
}

func (h *handler) adminResetAll(c *gin.Context) {
	n, err := h.deps.Ledger.AdminResetAll(c.Request.Context(), adminID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": n})
}

type dayRequest struct {
	Day   string `json:"day"`
	Force *bool  `json:"force"`
}

func (r dayRequest) dayOrToday() string {
	if r.Day == "" {
		return common.DayKey(common.GetMoscowTime())
	}
	return r.Day
}

// force по умолчанию включён: админ вызывает пересчёт, чтобы получить свежие данные.
func (r dayRequest) force() bool {
	return r.Force == nil || *r.Force
}

func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

func (h *handler) adminDailyGrant(c *gin.Context) {
	var req dayRequest
	if !bindOptional(c, &req) {
		return
	}
	day := req.dayOrToday()
	if _, err := common.ParseDayKey(day); err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := h.deps.Ledger.GrantDailyCredits(c.Request.Context(), day)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "accounts": n})
}

func (h *handler) adminListSettings(c *gin.Context) {
	fields, err := h.deps.Settings.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": fields})
}

type settingRequest struct {
	Value string `json:"value" binding:"required"`
}

func (h *handler) adminSetSetting(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	value, err := h.deps.Settings.Set(c.Request.Context(), key, req.Value)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

func (h *handler) adminResetSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if err := h.deps.Settings.Reset(c.Request.Context(), key); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "reset": true})
}

type recalculateRequest struct {
	results.Key
	Limit int   `json:"limit"`
	Force *bool `json:"force"`
}

func (h *handler) adminRecalculate(c *gin.Context) {
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	force := req.Force == nil || *req.Force
	n, err := h.deps.Results.RecalculateTop(c.Request.Context(), req.Key, req.Limit, force)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": req.Key, "items": n})
}

func (h *handler) adminRecalculateDay(c *gin.Context) {
	var req dayRequest
	if !bindOptional(c, &req) {
		return
	}
	day := req.dayOrToday()
	n, err := h.deps.Results.RecalculateDay(c.Request.Context(), day, req.force())
	if err != nil {
		// Частичный пересчёт: сообщаем, сколько ключей успели
		status, code := statusOf(err)
		if status == http.StatusServiceUnavailable {
			log.WithError(err).WithField("day", day).Error("Пересчёт дня завершился с ошибками")
		}
		c.AbortWithStatusJSON(status, gin.H{"error": code, "day": day, "keys": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "keys": n})
}

func (h *handler) adminInvalidate(c *gin.Context) {
	var key results.Key
	if err := c.ShouldBindJSON(&key); err != nil {
		badRequest(c, err.Error())
		return
	}
	found, err := h.deps.Results.Invalidate(c.Request.Context(), key)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "found": found})
}

func (h *handler) adminResultsStatus(c *gin.Context) {
	st, err := h.deps.Results.Status(c.Request.Context(), keyFromQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
