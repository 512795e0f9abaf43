// Package httpapi — handlers.go: публичные маршруты.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/feed"
	"glowshot.ru/rating-bot/internal/features/ratings"
	"glowshot.ru/rating-bot/internal/features/results"
	"glowshot.ru/rating-bot/internal/features/scoring"
)

func (h *handler) health(c *gin.Context) {
	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func int64Param(raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	return v, err == nil && v > 0
}

func (h *handler) feedNext(c *gin.Context) {
	viewerID, ok := int64Param(c.Query("viewer"))
	if !ok {
		badRequest(c, "viewer обязателен")
		return
	}
	sel, err := h.deps.Feed.Next(c.Request.Context(), viewerID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if sel == nil {
		c.JSON(http.StatusOK, feed.Selection{Pass: feed.PassEmpty})
		return
	}
	c.JSON(http.StatusOK, sel)
}

type voteRequest struct {
	VoterID int64  `json:"voter_id" binding:"required"`
	PhotoID int64  `json:"photo_id" binding:"required"`
	Value   int    `json:"value" binding:"required"`
	Source  string `json:"source"`
}

func (h *handler) vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	outcome, err := h.deps.Votes.Vote(c.Request.Context(), req.VoterID, req.PhotoID, req.Value, req.Source)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": outcome == ratings.OutcomeAccepted, "outcome": outcome})
}

// votesRemaining — GET /api/votes/remaining?voter=1&author=2.
// remaining = -1, если дневной лимит на автора выключен.
func (h *handler) votesRemaining(c *gin.Context) {
	voterID, ok := int64Param(c.Query("voter"))
	authorID, ok2 := int64Param(c.Query("author"))
	if !ok || !ok2 {
		badRequest(c, "voter и author обязательны")
		return
	}
	n, err := h.deps.Votes.RemainingForAuthor(c.Request.Context(), voterID, authorID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voter_id": voterID, "author_id": authorID, "remaining": n})
}

// dailyResults — GET /api/results/daily?scope=city&key=Москва&day=2026-10-16.
// Непосчитанный день отдаётся пустым списком.
func (h *handler) dailyResults(c *gin.Context) {
	scope := c.DefaultQuery("scope", scoring.ScopeGlobal)
	day := c.DefaultQuery("day", common.DayKey(common.GetMoscowTime()))
	entries, err := h.deps.Results.GetDailyResultsCache(c.Request.Context(), scope, c.Query("key"), day)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "scope": scope, "entries": entries})
}

func keyFromQuery(c *gin.Context) results.Key {
	return results.Key{
		Period:    c.DefaultQuery("period", results.PeriodDay),
		PeriodKey: c.Query("period_key"),
		ScopeType: c.DefaultQuery("scope", scoring.ScopeGlobal),
		ScopeKey:  c.Query("key"),
		Kind:      c.DefaultQuery("kind", results.KindTopPhotos),
	}
}

// results — GET /api/results?period=week&period_key=2026-W42&scope=global&kind=best_author.
func (h *handler) results(c *gin.Context) {
	key := keyFromQuery(c)
	entries, err := h.deps.Results.Entries(c.Request.Context(), key)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "entries": entries})
}

func (h *handler) account(c *gin.Context) {
	userID, ok := int64Param(c.Param("id"))
	if !ok {
		badRequest(c, "некорректный id")
		return
	}
	ctx := c.Request.Context()
	acc, err := h.deps.Accounts.GetAccount(ctx, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	rank, err := h.deps.Votes.AuthorRank(ctx, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	premium, err := h.deps.Members.IsPremiumActive(ctx, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	invites, err := h.deps.Members.QualifiedInviteCount(ctx, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acc, "rank": rank, "premium": premium, "invites": invites})
}

func (h *handler) accountHistory(c *gin.Context) {
	userID, ok := int64Param(c.Param("id"))
	if !ok {
		badRequest(c, "некорректный id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.deps.Accounts.History(c.Request.Context(), userID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
