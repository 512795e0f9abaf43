package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowshot.ru/rating-bot/internal/common"
	"glowshot.ru/rating-bot/internal/features/admin"
	"glowshot.ru/rating-bot/internal/features/economy"
	"glowshot.ru/rating-bot/internal/features/feed"
	"glowshot.ru/rating-bot/internal/features/photos"
	"glowshot.ru/rating-bot/internal/features/ratings"
	"glowshot.ru/rating-bot/internal/features/results"
	"glowshot.ru/rating-bot/internal/features/scoring"
	"glowshot.ru/rating-bot/internal/features/settings"
)

var errStore = errors.New("connection refused")

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeFeed struct{ sel *feed.Selection }

func (f fakeFeed) Next(context.Context, int64) (*feed.Selection, error) { return f.sel, nil }

type fakeVotes struct {
	outcome ratings.Outcome
	err     error
}

func (f fakeVotes) Vote(_ context.Context, _, _ int64, value int, _ string) (ratings.Outcome, error) {
	if value < 1 || value > 10 {
		return "", common.ErrInvalidRating
	}
	return f.outcome, f.err
}

func (f fakeVotes) AuthorRank(_ context.Context, userID int64) (*ratings.AuthorRank, error) {
	return &ratings.AuthorRank{UserID: userID, Points: 130, Rank: scoring.RankFromPoints(130)}, nil
}

func (f fakeVotes) RemainingForAuthor(context.Context, int64, int64) (int, error) { return 2, nil }

func (f fakeVotes) HasRated(_ context.Context, voterID, _ int64) (bool, error) { return voterID == 8, nil }

func (f fakeVotes) ListByPhoto(_ context.Context, photoID int64, _ int) ([]ratings.Vote, error) {
	return []ratings.Vote{{PhotoID: photoID, UserID: 8, Value: 9, Source: ratings.SourceNormal}}, nil
}

type fakeMembers struct{ premiumDays int }

func (f *fakeMembers) IsPremiumActive(_ context.Context, userID int64) (bool, error) {
	return userID == 42, nil
}

func (f *fakeMembers) QualifiedInviteCount(context.Context, int64) (int, error) { return 3, nil }

func (f *fakeMembers) GrantPremium(_ context.Context, _ int64, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, common.ErrInvalidDays
	}
	f.premiumDays = days
	return time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC), nil
}

type fakePhotos struct {
	deletedBy   int64
	byModerator bool
	status      string
}

func (f *fakePhotos) Get(_ context.Context, photoID int64) (*photos.Photo, error) {
	if photoID == 999 {
		return nil, common.ErrPhotoNotFound
	}
	return &photos.Photo{
		ID:               photoID,
		UserID:           3,
		Status:           photos.StatusActive,
		ModerationStatus: photos.ModerationActive,
		RatingsEnabled:   true,
	}, nil
}

func (f *fakePhotos) ListByUser(_ context.Context, userID int64, _ int) ([]*photos.Photo, error) {
	if userID != 3 {
		return nil, nil
	}
	return []*photos.Photo{{ID: 5, UserID: 3}}, nil
}

func (f *fakePhotos) Delete(_ context.Context, photoID, actorID int64, byModerator bool) error {
	if !byModerator && actorID != 3 {
		return common.ErrPhotoNotFound
	}
	f.deletedBy, f.byModerator = actorID, byModerator
	return nil
}

func (f *fakePhotos) Report(context.Context, int64, int64) (int, error) { return 1, nil }

func (f *fakePhotos) Comment(_ context.Context, _, _ int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return common.ErrInvalidComment
	}
	return nil
}

func (f *fakePhotos) Moderate(_ context.Context, _ int64, status string) (int64, error) {
	if status != photos.ModerationActive && status != photos.ModerationRejected {
		return 0, common.ErrInvalidModeration
	}
	f.status = status
	return 3, nil
}

func (f *fakePhotos) PendingReports(context.Context, int64) (int, error) { return 2, nil }

type fakeResults struct {
	entries []results.Entry
	invalid bool
	lastKey results.Key
	force   bool
}

func (f *fakeResults) GetDailyResultsCache(_ context.Context, scopeType, scopeKey, day string) ([]results.Entry, error) {
	return f.Entries(context.Background(), results.DayKey(scopeType, scopeKey, day))
}

func (f *fakeResults) Entries(_ context.Context, key results.Key) ([]results.Entry, error) {
	if _, err := key.Normalize(); err != nil {
		return nil, err
	}
	if f.entries == nil {
		return []results.Entry{}, nil
	}
	return f.entries, nil
}

func (f *fakeResults) Status(_ context.Context, key results.Key) (*results.Status, error) {
	return &results.Status{Key: key, State: results.StateNotComputed}, nil
}

func (f *fakeResults) RecalculateTop(_ context.Context, key results.Key, _ int, force bool) (int, error) {
	f.lastKey, f.force = key, force
	return len(f.entries), nil
}

func (f *fakeResults) RecalculateDay(context.Context, string, bool) (int, error) {
	return 4, nil
}

func (f *fakeResults) Invalidate(_ context.Context, key results.Key) (bool, error) {
	f.lastKey = key
	return true, nil
}

type fakeAccounts struct{}

func (fakeAccounts) GetAccount(_ context.Context, userID int64) (*economy.Account, error) {
	return &economy.Account{UserID: userID, Credits: 5, ShowTokens: 2}, nil
}

func (fakeAccounts) History(context.Context, int64, int) ([]economy.LogEntry, error) {
	return nil, errStore
}

type fakeLedger struct{ adminID, userID, amount int64 }

func (f *fakeLedger) AdminAddCredits(_ context.Context, adminID, userID, amount int64) (*economy.Account, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	f.adminID, f.userID, f.amount = adminID, userID, amount
	return &economy.Account{UserID: userID, Credits: amount}, nil
}

func (f *fakeLedger) AdminRemoveCredits(context.Context, int64, int64, int64) (*economy.Account, error) {
	return &economy.Account{}, nil
}

func (f *fakeLedger) AdminGrantAll(context.Context, int64, int64) (int64, error) { return 3, nil }
func (f *fakeLedger) AdminResetAll(context.Context, int64) (int64, error)        { return 3, nil }
func (f *fakeLedger) GrantDailyCredits(context.Context, string) (int64, error)   { return 2, nil }

type fakeSettings struct{}

func (fakeSettings) List(context.Context) ([]settings.Field, error) {
	return []settings.Field{{Key: "tail_probability", Effective: "0.05"}}, nil
}

func (fakeSettings) Set(_ context.Context, key, raw string) (string, error) {
	if key != "tail_probability" {
		return "", common.ErrUnknownSetting
	}
	return raw, nil
}

func (fakeSettings) Reset(context.Context, string) error { return nil }

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, userID int64, password string) (*admin.Session, error) {
	if password != "pw" {
		return nil, common.ErrWrongPassword
	}
	return &admin.Session{UserID: userID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (fakeAuth) Authenticate(_ context.Context, token string) (*admin.Session, error) {
	if token != "tok" {
		return nil, common.ErrSessionExpired
	}
	return &admin.Session{UserID: 77, Token: token}, nil
}

// serviceToken — токен слоя представления в тестах.
const serviceToken = "svc-secret"

var svcAuth = []string{"Authorization", "Bearer " + serviceToken}

type testAPI struct {
	router  *gin.Engine
	results *fakeResults
	ledger  *fakeLedger
	members *fakeMembers
	photos  *fakePhotos
}

func newTestAPI(t *testing.T, deps Dependencies, opts Options) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := &testAPI{results: &fakeResults{}, ledger: &fakeLedger{}, members: &fakeMembers{}, photos: &fakePhotos{}}
	if deps.DB == nil {
		deps.DB = fakePinger{}
	}
	if deps.Feed == nil {
		deps.Feed = fakeFeed{}
	}
	if deps.Votes == nil {
		deps.Votes = fakeVotes{outcome: ratings.OutcomeAccepted}
	}
	deps.Results = api.results
	deps.Accounts = fakeAccounts{}
	deps.Members = api.members
	deps.Photos = api.photos
	deps.Ledger = api.ledger
	deps.Settings = fakeSettings{}
	deps.Auth = fakeAuth{}
	if opts.ServiceToken == "" {
		opts.ServiceToken = serviceToken
	}
	if opts.RateRPS == 0 {
		opts.RateRPS, opts.RateBurst = 1000, 1000
	}
	api.router = NewRouter(deps, opts)
	return api
}

func (a *testAPI) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	rec := api.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	api = newTestAPI(t, Dependencies{DB: fakePinger{err: errStore}}, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodGet, "/healthz", "").Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	rec := api.do(http.MethodGet, "/healthz", "", requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestFeedNext(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/feed/next", "", svcAuth...).Code)

	rec := api.do(http.MethodGet, "/api/feed/next?viewer=5", "", svcAuth...)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, feed.PassEmpty, body["pass"])
	assert.Nil(t, body["photo"])

	api = newTestAPI(t, Dependencies{Feed: fakeFeed{sel: &feed.Selection{
		Photo: &photos.Photo{ID: 9, UserID: 3},
		Pass:  feed.PassFunded,
	}}}, Options{})
	body = decode(t, api.do(http.MethodGet, "/api/feed/next?viewer=5", "", svcAuth...))
	assert.Equal(t, feed.PassFunded, body["pass"])
	assert.Equal(t, float64(9), body["photo"].(map[string]any)["id"])
}

func TestVote(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	rec := api.do(http.MethodPost, "/api/votes", `{"voter_id":1,"photo_id":2,"value":8}`, svcAuth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["accepted"])

	rec = api.do(http.MethodPost, "/api/votes", `{"voter_id":1,"photo_id":2,"value":11}`, svcAuth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api = newTestAPI(t, Dependencies{Votes: fakeVotes{outcome: ratings.OutcomeThrottled}}, Options{})
	body := decode(t, api.do(http.MethodPost, "/api/votes", `{"voter_id":1,"photo_id":2,"value":8}`, svcAuth...))
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, string(ratings.OutcomeThrottled), body["outcome"])

	api = newTestAPI(t, Dependencies{Votes: fakeVotes{err: errStore}}, Options{})
	rec = api.do(http.MethodPost, "/api/votes", `{"voter_id":1,"photo_id":2,"value":8}`, svcAuth...)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), errStore.Error())
}

func TestDailyResults(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	rec := api.do(http.MethodGet, "/api/results/daily?day=2026-10-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{}, body["entries"])

	rec = api.do(http.MethodGet, "/api/results/daily?scope=city&day=2026-10-15", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.results.entries = []results.Entry{{Place: 1, PhotoID: 4, UserID: 2, Score: 7.5}}
	rec = api.do(http.MethodGet, "/api/results?period=week&period_key=2026-W42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["entries"], 1)
}

func TestAccount(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	rec := api.do(http.MethodGet, "/api/accounts/42", "", svcAuth...)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(5), body["account"].(map[string]any)["credits"])
	assert.Equal(t, "amateur", body["rank"].(map[string]any)["rank"].(map[string]any)["code"])
	assert.Equal(t, true, body["premium"])
	assert.Equal(t, float64(3), body["invites"])

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/accounts/abc", "", svcAuth...).Code)
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodGet, "/api/accounts/42/history", "", svcAuth...).Code)
}

func TestAdminAuth(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})

	rec := api.do(http.MethodPost, "/api/admin/login", `{"user_id":77,"password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(http.MethodPost, "/api/admin/login", `{"user_id":77,"password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", decode(t, rec)["access_token"])

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/admin/settings", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		api.do(http.MethodGet, "/api/admin/settings", "", "Authorization", "Bearer bad").Code)
	assert.Equal(t, http.StatusOK,
		api.do(http.MethodGet, "/api/admin/settings", "", "Authorization", "Bearer tok").Code)
}

func TestAdminCredits(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	auth := []string{"Authorization", "Bearer tok"}

	rec := api.do(http.MethodPost, "/api/admin/credits/add", `{"user_id":5,"amount":10}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(77), api.ledger.adminID)
	assert.Equal(t, int64(5), api.ledger.userID)

	rec = api.do(http.MethodPost, "/api/admin/credits/add", `{"user_id":5,"amount":0}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPost, "/api/admin/credits/add", `{"amount":3}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/admin/credits/daily-grant", "", auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["accounts"])

	rec = api.do(http.MethodPost, "/api/admin/credits/daily-grant", `{"day":"16.10"}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSettingsAndResults(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	auth := []string{"Authorization", "Bearer tok"}

	rec := api.do(http.MethodPut, "/api/admin/settings/tail_probability", `{"value":"0.1"}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPut, "/api/admin/settings/bogus", `{"value":"1"}`, auth...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/admin/results/recalculate",
		`{"period":"day","period_key":"2026-10-15","scope_type":"global"}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, api.results.force)
	assert.Equal(t, "2026-10-15", api.results.lastKey.PeriodKey)

	rec = api.do(http.MethodPost, "/api/admin/results/recalculate",
		`{"period":"day","period_key":"2026-10-15","scope_type":"global","force":false}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, api.results.force)

	rec = api.do(http.MethodPost, "/api/admin/results/recalculate-day", `{"day":"2026-10-15"}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decode(t, rec)["keys"])

	rec = api.do(http.MethodPost, "/api/admin/results/invalidate",
		`{"period":"day","period_key":"2026-10-15","scope_type":"city","scope_key":"Москва"}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Москва", api.results.lastKey.ScopeKey)
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{RateRPS: 0.001, RateBurst: 1})
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/feed/next?viewer=1", "", svcAuth...).Code)
	assert.Equal(t, http.StatusTooManyRequests, api.do(http.MethodGet, "/api/feed/next?viewer=1", "", svcAuth...).Code)
	// Служебные маршруты не лимитируются
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{CORSOrigins: []string{"https://glowshot.example"}})
	rec := api.do(http.MethodOptions, "/api/votes", "",
		"Origin", "https://glowshot.example",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://glowshot.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	api.do(http.MethodGet, "/healthz", "")
	rec := api.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "glowshot_http_requests_total")
}

func TestUserRoutesRequireServiceToken(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	vote := `{"voter_id":1,"photo_id":2,"value":8}`

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/votes", vote).Code)
	assert.Equal(t, http.StatusUnauthorized,
		api.do(http.MethodPost, "/api/votes", vote, "Authorization", "Bearer guess").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/feed/next?viewer=5", "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/accounts/42", "").Code)
	// Админский токен не заменяет сервисный
	assert.Equal(t, http.StatusUnauthorized,
		api.do(http.MethodPost, "/api/votes", vote, "Authorization", "Bearer tok").Code)

	// Итоги остаются публичными
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/results/daily?day=2026-10-15", "").Code)
}

func TestVotesRemaining(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	rec := api.do(http.MethodGet, "/api/votes/remaining?voter=1&author=2", "", svcAuth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["remaining"])

	rec = api.do(http.MethodGet, "/api/votes/remaining?voter=1", "", svcAuth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPhotoRoutes(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})

	body := decode(t, api.do(http.MethodGet, "/api/photos/5?viewer=8", "", svcAuth...))
	assert.Equal(t, true, body["rated"])
	assert.Equal(t, false, body["rateable"])
	body = decode(t, api.do(http.MethodGet, "/api/photos/5?viewer=9", "", svcAuth...))
	assert.Equal(t, true, body["rateable"])
	body = decode(t, api.do(http.MethodGet, "/api/photos/5", "", svcAuth...))
	assert.NotContains(t, body, "rated")
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/photos/999", "", svcAuth...).Code)

	assert.Len(t, decode(t, api.do(http.MethodGet, "/api/users/3/photos", "", svcAuth...))["photos"], 1)
	assert.Equal(t, []any{}, decode(t, api.do(http.MethodGet, "/api/users/4/photos", "", svcAuth...))["photos"])

	rec := api.do(http.MethodPost, "/api/photos/5/reports", `{"reporter_id":8}`, svcAuth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["pending_reports"])

	rec = api.do(http.MethodPost, "/api/photos/5/comments", `{"user_id":8,"text":"класс"}`, svcAuth...)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, "/api/photos/5/comments", `{"user_id":8,"text":"  "}`, svcAuth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Удалить может только автор
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/photos/5?owner=8", "", svcAuth...).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/photos/5?owner=3", "", svcAuth...).Code)
	assert.False(t, api.photos.byModerator)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/photos/x?owner=3", "", svcAuth...).Code)
}

func TestAdminPremiumAndModeration(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	auth := []string{"Authorization", "Bearer tok"}

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/admin/premium", `{"user_id":5,"days":30}`).Code)
	rec := api.do(http.MethodPost, "/api/admin/premium", `{"user_id":5,"days":30}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, api.members.premiumDays)
	assert.Equal(t, http.StatusBadRequest,
		api.do(http.MethodPost, "/api/admin/premium", `{"user_id":5,"days":0}`, auth...).Code)

	rec = api.do(http.MethodGet, "/api/admin/photos/5", "", auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["pending_reports"])
	assert.Len(t, body["ratings"], 1)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/admin/photos/999", "", auth...).Code)

	rec = api.do(http.MethodPost, "/api/admin/photos/5/moderation", `{"status":"rejected"}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, photos.ModerationRejected, api.photos.status)
	rec = api.do(http.MethodPost, "/api/admin/photos/5/moderation", `{"status":"banned"}`, auth...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/admin/photos/5", "", auth...).Code)
	assert.True(t, api.photos.byModerator)
	assert.Equal(t, int64(77), api.photos.deletedBy)
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	api := newTestAPI(t, Dependencies{}, Options{})
	rec := api.do(http.MethodGet, "/healthz", "", "Origin", "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
