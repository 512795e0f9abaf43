// Package httpapi — photos.go: жалобы, комментарии и удаление фото,
// премиум и модерация в админке.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/photos"
)

func photoIDParam(c *gin.Context) (int64, bool) {
	id, ok := int64Param(c.Param("id"))
	if !ok {
		badRequest(c, "некорректный id фото")
	}
	return id, ok
}

// photo — GET /api/photos/:id?viewer=<user_id>: фото и оценивал ли его зритель.
func (h *handler) photo(c *gin.Context) {
	photoID, ok := photoIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.deps.Photos.Get(ctx, photoID)
	if err == nil && p.Status == photos.StatusDeleted {
		err = common.ErrPhotoNotFound
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	body := gin.H{"photo": p}
	if viewerID, ok := int64Param(c.Query("viewer")); ok {
		rated, err := h.deps.Votes.HasRated(ctx, viewerID, photoID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		body["rated"] = rated
		body["rateable"] = !rated && viewerID != p.UserID && p.IsRateable(common.GetMoscowTime())
	}
	c.JSON(http.StatusOK, body)
}

// userPhotos — GET /api/users/:id/photos?limit=20: последние фото автора.
func (h *handler) userPhotos(c *gin.Context) {
	userID, ok := int64Param(c.Param("id"))
	if !ok {
		badRequest(c, "некорректный id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.deps.Photos.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if list == nil {
		list = []*photos.Photo{}
	}
	c.JSON(http.StatusOK, gin.H{"photos": list})
}

type reportRequest struct {
	ReporterID int64 `json:"reporter_id" binding:"required"`
}

func (h *handler) reportPhoto(c *gin.Context) {
	photoID, ok := photoIDParam(c)
	if !ok {
		return
	}
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	pending, err := h.deps.Photos.Report(c.Request.Context(), photoID, req.ReporterID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo_id": photoID, "pending_reports": pending})
}

type commentRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Text   string `json:"text"`
}

func (h *handler) commentPhoto(c *gin.Context) {
	photoID, ok := photoIDParam(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.deps.Photos.Comment(c.Request.Context(), photoID, req.UserID, req.Text); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"photo_id": photoID})
}

// deleteOwnPhoto — DELETE /api/photos/:id?owner=<user_id>: удаление автором.
func (h *handler) deleteOwnPhoto(c *gin.Context) {
	photoID, ok := photoIDParam(c)
	if !ok {
		return
	}
	ownerID, ok := int64Param(c.Query("owner"))
	if !ok {
		badRequest(c, "owner обязателен")
		return
	}
	if err := h.deps.Photos.Delete(c.Request.Context(), photoID, ownerID, false); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type premiumRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	Days   int   `json:"days"`
}

func (h *handler) adminGrantPremium(c *gin.Context) {
	var req premiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	until, err := h.deps.Members.GrantPremium(c.Request.Context(), req.UserID, req.Days)
	if err != nil {
		abortWithError(c, err)
		return
	}
	log.WithFields(log.Fields{
		"admin_id": adminID(c),
		"user_id":  req.UserID,
		"days":     req.Days,
	}).Info("Администратор выдал премиум")
	c.JSON(http.StatusOK, gin.H{"user_id": req.UserID, "premium_until": until})
}

// adminPhoto — карточка фото для модератора: счётчики, жалобы и последние оценки.
func (h *handler) adminPhoto(c *gin.Context) {
	photoID, ok := photoIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.deps.Photos.Get(ctx, photoID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	pending, err := h.deps.Photos.PendingReports(ctx, photoID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("ratings", "50"))
	votes, err := h.deps.Votes.ListByPhoto(ctx, photoID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": p, "pending_reports": pending, "ratings": votes})
}

type moderationRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handler) adminModeratePhoto(c *gin.Context) {
	photoID, ok := photoIDParam(c)
	if !ok {
		return
	}
	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	resolved, err := h.deps.Photos.Moderate(c.Request.Context(), photoID, req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo_id": photoID, "status": req.Status, "resolved_reports": resolved})
}

func (h *handler) adminDeletePhoto(c *gin.Context) {
	photoID, ok := photoIDParam(c)
	if !ok {
		return
	}
	if err := h.deps.Photos.Delete(c.Request.Context(), photoID, adminID(c), true); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
