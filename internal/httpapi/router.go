// Package httpapi — HTTP API поверх тех же сервисов, что и бот:
// лента, оценки, итоги, счета и админские операции.
// Маршруты от имени пользователя (лента, оценки, счета, жалобы) доступны
// только слою представления с сервисным токеном, итоги публичны.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"glowshot.ru/rating-bot/internal/features/admin"
	"glowshot.ru/rating-bot/internal/features/economy"
	"glowshot.ru/rating-bot/internal/features/feed"
	"glowshot.ru/rating-bot/internal/features/photos"
	"glowshot.ru/rating-bot/internal/features/ratings"
	"glowshot.ru/rating-bot/internal/features/results"
	"glowshot.ru/rating-bot/internal/metrics"
)

// FeedService выдаёт фото зрителю.
type FeedService interface {
	Next(ctx context.Context, viewerID int64) (*feed.Selection, error)
}

// VoteService записывает оценки и отдаёт ранг автора.
type VoteService interface {
	Vote(ctx context.Context, voterID, photoID int64, value int, source string) (ratings.Outcome, error)
	AuthorRank(ctx context.Context, userID int64) (*ratings.AuthorRank, error)
	RemainingForAuthor(ctx context.Context, voterID, authorID int64) (int, error)
	HasRated(ctx context.Context, voterID, photoID int64) (bool, error)
	ListByPhoto(ctx context.Context, photoID int64, limit int) ([]ratings.Vote, error)
}

// MemberService — профильные факты и премиум.
type MemberService interface {
	IsPremiumActive(ctx context.Context, userID int64) (bool, error)
	QualifiedInviteCount(ctx context.Context, userID int64) (int, error)
	GrantPremium(ctx context.Context, userID int64, days int) (time.Time, error)
}

// PhotoService — жалобы, комментарии, удаление и модерация фото.
type PhotoService interface {
	Get(ctx context.Context, photoID int64) (*photos.Photo, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*photos.Photo, error)
	Delete(ctx context.Context, photoID, actorID int64, byModerator bool) error
	Report(ctx context.Context, photoID, reporterID int64) (int, error)
	Comment(ctx context.Context, photoID, userID int64, text string) error
	Moderate(ctx context.Context, photoID int64, status string) (int64, error)
	PendingReports(ctx context.Context, photoID int64) (int, error)
}

// ResultsService читает и пересчитывает итоги.
type ResultsService interface {
	GetDailyResultsCache(ctx context.Context, scopeType, scopeKey, day string) ([]results.Entry, error)
	Entries(ctx context.Context, key results.Key) ([]results.Entry, error)
	Status(ctx context.Context, key results.Key) (*results.Status, error)
	RecalculateTop(ctx context.Context, key results.Key, limit int, force bool) (int, error)
	RecalculateDay(ctx context.Context, day string, force bool) (int, error)
	Invalidate(ctx context.Context, key results.Key) (bool, error)
}

// AccountService читает счета.
type AccountService interface {
	GetAccount(ctx context.Context, userID int64) (*economy.Account, error)
	History(ctx context.Context, userID int64, limit int) ([]economy.LogEntry, error)
}

// AdminAuth — вход и проверка токена администратора.
type AdminAuth interface {
	Login(ctx context.Context, userID int64, password string) (*admin.Session, error)
	Authenticate(ctx context.Context, token string) (*admin.Session, error)
}

// Pinger проверяет доступность базы для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies — всё, что нужно роутеру.
type Dependencies struct {
	DB       Pinger
	Feed     FeedService
	Votes    VoteService
	Results  ResultsService
	Accounts AccountService
	Members  MemberService
	Photos   PhotoService
	Ledger   admin.Ledger
	Settings admin.SettingsAdmin
	Auth     AdminAuth
}

// Options — параметры транспорта. Пустой ServiceToken закрывает
// пользовательские маршруты, пустой CORSOrigins выключает CORS.
type Options struct {
	CORSOrigins  []string
	ServiceToken string
	RateRPS      float64
	RateBurst    int
}

type handler struct {
	deps Dependencies
}

// NewRouter собирает gin-роутер со всеми маршрутами.
func NewRouter(deps Dependencies, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(requestID(), recovery(), accessLog())

	if len(opts.CORSOrigins) > 0 {
		corsCfg := cors.Config{
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}
		if len(opts.CORSOrigins) == 1 && opts.CORSOrigins[0] == "*" {
			corsCfg.AllowAllOrigins = true
		} else {
			corsCfg.AllowOrigins = opts.CORSOrigins
		}
		router.Use(cors.New(corsCfg))
	}

	h := &handler{deps: deps}
	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.Use(newClientLimiter(opts.RateRPS, opts.RateBurst).middleware())
	api.GET("/results/daily", h.dailyResults)
	api.GET("/results", h.results)

	users := api.Group("")
	users.Use(requireService(opts.ServiceToken))
	users.GET("/feed/next", h.feedNext)
	users.POST("/votes", h.vote)
	users.GET("/votes/remaining", h.votesRemaining)
	users.GET("/accounts/:id", h.account)
	users.GET("/accounts/:id/history", h.accountHistory)
	users.GET("/users/:id/photos", h.userPhotos)
	users.GET("/photos/:id", h.photo)
	users.POST("/photos/:id/reports", h.reportPhoto)
	users.POST("/photos/:id/comments", h.commentPhoto)
	users.DELETE("/photos/:id", h.deleteOwnPhoto)

	api.POST("/admin/login", h.adminLogin)
	protected := api.Group("/admin")
	protected.Use(h.requireAdmin)
	protected.POST("/credits/add", h.adminAddCredits)
	protected.POST("/credits/remove", h.adminRemoveCredits)
	protected.POST("/credits/grant-all", h.adminGrantAll)
	protected.POST("/credits/reset-all", h.adminResetAll)
	protected.POST("/credits/daily-grant", h.adminDailyGrant)
	protected.GET("/settings", h.adminListSettings)
	protected.PUT("/settings/:key", h.adminSetSetting)
	protected.DELETE("/settings/:key", h.adminResetSetting)
	protected.POST("/results/recalculate", h.adminRecalculate)
	protected.POST("/results/recalculate-day", h.adminRecalculateDay)
	protected.POST("/results/invalidate", h.adminInvalidate)
	protected.GET("/results/status", h.adminResultsStatus)
	protected.POST("/premium", h.adminGrantPremium)
	protected.GET("/photos/:id", h.adminPhoto)
	protected.POST("/photos/:id/moderation", h.adminModeratePhoto)
	protected.DELETE("/photos/:id", h.adminDeletePhoto)

	return router
}
