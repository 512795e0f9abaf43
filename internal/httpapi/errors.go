package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
)

// statusOf сопоставляет доменные ошибки с HTTP-кодами. Всё неизвестное —
// сбой хранилища, клиент получает 503 без подробностей.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidRating),
		errors.Is(err, common.ErrInvalidSource),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInvalidResultsKey),
		errors.Is(err, common.ErrInvalidSetting),
		errors.Is(err, common.ErrInvalidComment),
		errors.Is(err, common.ErrInvalidModeration),
		errors.Is(err, common.ErrInvalidDays):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, common.ErrUnknownSetting):
		return http.StatusNotFound, "unknown_setting"
	case errors.Is(err, common.ErrPhotoNotFound):
		return http.StatusNotFound, "photo_not_found"
	case errors.Is(err, common.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, common.ErrNotAdmin):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrWrongPassword), errors.Is(err, common.ErrSessionExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too_many_attempts"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusServiceUnavailable, "service_unavailable"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusOf(err)
	body := gin.H{"error": code}
	if status == http.StatusServiceUnavailable {
		log.WithError(err).WithFields(log.Fields{
			"request_id": c.GetString(requestIDKey),
			"path":       c.Request.URL.Path,
		}).Error("Ошибка обработки HTTP-запроса")
	} else {
		body["message"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": message})
}
