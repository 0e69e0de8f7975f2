package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinehub/internal/apperr"
	"cinehub/internal/auth"
	"cinehub/internal/config"
	"cinehub/internal/events"
	"cinehub/internal/logger"
	"cinehub/internal/metrics"
	"cinehub/internal/models"
	"cinehub/internal/ranking"
	"cinehub/internal/router"
	"cinehub/internal/services"
	"cinehub/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	t      *testing.T
	engine *gin.Engine
	hub    *events.Hub
	tokens *auth.TokenIssuer
}

func newTestApp(t *testing.T, trustBodyUID bool, opts ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := &config.Config{
		Env:              "test",
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		SessionSecret:    "test-session-secret",
		TrustBodyUID:     trustBodyUID,
		RateLimitRPS:     1000,
		RateLimitBurst:   1000,
		AuthRateLimitRPS: 1000,
		CORSOrigins:      []string{"*"},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	fs := store.NewFileStore(t.TempDir())
	require.NoError(t, fs.EnsureCollections(store.AllCollections...))

	m := metrics.New(prometheus.NewRegistry())
	hub := events.NewHub(16)
	dispatcher := events.NewDispatcher(hub, logger.Discard().Entry, events.WithBatch(1, 10*time.Millisecond))
	dispatcher.Start(t.Context())

	deps := services.Deps{
		Ranker:   ranking.New(ranking.WithoutShuffle()),
		Notifier: dispatcher,
		Metrics:  m,
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	engine, err := router.New(router.Deps{
		Config:    cfg,
		Log:       logger.Discard(),
		Metrics:   m,
		Store:     fs,
		Tokens:    tokens,
		Hub:       hub,
		Playlists: services.NewPlaylistService(store.NewCollection[models.Playlist](fs, store.Playlists), deps),
		Forum: services.NewForumService(
			store.NewCollection[models.ForumMovie](fs, store.ForumMovies),
			store.NewCollection[models.ForumThread](fs, store.ForumThreads),
			deps,
		),
		Reviews: services.NewReviewService(store.NewCollection[models.Review](fs, store.Reviews), deps),
		Users:   services.NewUserService(store.NewCollection[models.User](fs, store.Users), deps),
	})
	require.NoError(t, err)
	return &testApp{t: t, engine: engine, hub: hub, tokens: tokens}
}

func (a *testApp) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code apperr.Kind) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[apperr.Body](t, rec)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Error)
}

func TestPlaylistScenarioOverHTTP(t *testing.T) {
	app := newTestApp(t, true)

	rec := app.do(http.MethodPost, "/playlists", gin.H{"name": "Noir", "owner": "seven", "ownerUID": "7"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[models.Playlist](t, rec)
	assert.Equal(t, int64(7), p.OwnerUID)

	for _, v := range []gin.H{
		{"userUID": 1, "vote": "up"},
		{"userUID": 2, "vote": "up"},
		{"userUID": 3, "vote": "down"},
		{"userUID": 1, "vote": "up"},
	} {
		rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/vote", v, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	vote := decode[map[string]any](t, rec)
	assert.Equal(t, true, vote["ok"])
	assert.EqualValues(t, 1, vote["score"])

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/comments", gin.H{"userUID": 2, "username": "two", "text": "Great list"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := decode[models.Comment](t, rec)
	assert.Equal(t, "two", c.Username)

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/comments/"+c.ID+"/vote", gin.H{"userUID": 2}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["upvotes"])

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/comments/"+c.ID+"/vote", gin.H{"userUID": 2}, "")
	assertError(t, rec, http.StatusConflict, apperr.KindAlreadyVoted)

	rec = app.do(http.MethodDelete, "/playlists/"+p.ID+"/comments/"+c.ID, gin.H{"userUID": 9}, "")
	assertError(t, rec, http.StatusForbidden, apperr.KindForbidden)

	rec = app.do(http.MethodDelete, "/playlists/"+p.ID+"/comments/"+c.ID, gin.H{"userUID": 2}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, "/playlists/"+p.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[models.Playlist](t, rec)
	assert.Equal(t, 1, saved.Score)
	assert.Empty(t, saved.Comments)
}

func TestPlaylistErrors(t *testing.T) {
	app := newTestApp(t, true)

	rec := app.do(http.MethodPost, "/playlists", gin.H{"name": "Noir"}, "")
	assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)

	rec = app.do(http.MethodPost, "/playlists", gin.H{"ownerUID": 7}, "")
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = app.do(http.MethodGet, "/playlists/missing", nil, "")
	assertError(t, rec, http.StatusNotFound, apperr.KindNotFound)

	rec = app.do(http.MethodPost, "/playlists/missing/vote", gin.H{"vote": "up"}, "")
	assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)

	rec = app.do(http.MethodPost, "/playlists", "not an object", "")
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)
}

func TestPlaylistMoviesAndOwnership(t *testing.T) {
	app := newTestApp(t, true)

	rec := app.do(http.MethodPost, "/playlists", gin.H{"name": "Noir", "ownerUID": 7}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[models.Playlist](t, rec)

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/movies", gin.H{"movieId": 550, "movieTitle": "Fight Club", "userUID": 8}, "")
	assertError(t, rec, http.StatusForbidden, apperr.KindForbidden)

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/movies", gin.H{"movieId": 550, "movieTitle": "Fight Club", "userUID": 7}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Added", decode[map[string]any](t, rec)["message"])

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/movies", gin.H{"movieId": "550", "userUID": 7}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Already in playlist", decode[map[string]any](t, rec)["message"])

	rec = app.do(http.MethodPut, "/playlists/"+p.ID, gin.H{"name": "Neo-noir", "userUID": 7}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Neo-noir", decode[models.Playlist](t, rec).Name)

	rec = app.do(http.MethodDelete, "/playlists/"+p.ID+"/movies/550", gin.H{"userUID": 7}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodGet, "/playlists?owner=Guest", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.Playlist](t, rec)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Movies)

	rec = app.do(http.MethodDelete, "/playlists/"+p.ID, gin.H{"userUID": 7}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Playlist deleted", decode[map[string]any](t, rec)["message"])
}

func TestBodyUIDAgainstVerifiedIdentity(t *testing.T) {
	app := newTestApp(t, true)
	token, err := app.tokens.Issue(models.User{UserUID: 7, Username: "seven"})
	require.NoError(t, err)

	rec := app.do(http.MethodPost, "/playlists", gin.H{"name": "Noir"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[models.Playlist](t, rec)
	assert.Equal(t, int64(7), p.OwnerUID)
	assert.Equal(t, "seven", p.Owner)

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/vote", gin.H{"userUID": 8, "vote": "up"}, token)
	assertError(t, rec, http.StatusForbidden, apperr.KindForbidden)

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/vote", gin.H{"vote": "up"}, "not-a-token")
	assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)
}

func TestBodyUIDIgnoredWhenUntrusted(t *testing.T) {
	app := newTestApp(t, false)

	rec := app.do(http.MethodPost, "/playlists", gin.H{"name": "Noir", "ownerUID": 7}, "")
	assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)
}

func TestForumOverHTTP(t *testing.T) {
	app := newTestApp(t, true)

	rec := app.do(http.MethodPost, "/forum/movies", gin.H{"movieId": 550, "movieTitle": "Fight Club", "userUID": 1, "username": "ann"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ann", decode[models.ForumMovie](t, rec).AddedBy)

	rec = app.do(http.MethodPost, "/forum/movies", gin.H{"movieId": "550", "movieTitle": "Fight Club", "userUID": 2}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Movie already in forum", decode[map[string]any](t, rec)["message"])

	rec = app.do(http.MethodPost, "/forum/threads", gin.H{"movieId": "550", "title": "Ending", "userUID": 3}, "")
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = app.do(http.MethodPost, "/forum/threads", gin.H{
		"movieId":     "550",
		"title":       "Ending",
		"description": "What did the **ending** mean?",
		"userUID":     3,
		"username":    "three",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	th := decode[models.ForumThread](t, rec)

	rec = app.do(http.MethodPost, "/forum/threads/"+th.ID+"/vote", gin.H{"userUID": 4, "vote": "down"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	voted := decode[models.ForumThread](t, rec)
	assert.Equal(t, -1, voted.Score)
	assert.Equal(t, th.ID, voted.ID)

	rec = app.do(http.MethodPost, "/forum/threads/"+th.ID+"/comments", gin.H{"userUID": 4, "text": "  "}, "")
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = app.do(http.MethodPost, "/forum/threads/"+th.ID+"/comments", gin.H{"userUID": 4, "text": "Tyler"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[models.Comment](t, rec)

	rec = app.do(http.MethodPost, "/forum/threads/"+th.ID+"/comments/"+c.ID+"/upvote", gin.H{"userUID": 5}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodGet, "/forum/threads?movieId=550", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0]["commentCount"])

	rec = app.do(http.MethodGet, "/forum/threads/"+th.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Contains(t, detail["descriptionHtml"], "<strong>ending</strong>")

	rec = app.do(http.MethodGet, "/forum/threads/"+th.ID+"/comments?sort=top", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Comment](t, rec), 1)

	rec = app.do(http.MethodGet, "/forum/movies", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	movies := decode[[]map[string]any](t, rec)
	require.Len(t, movies, 1)
	assert.EqualValues(t, 1, movies[0]["threadCount"])

	rec = app.do(http.MethodDelete, "/forum/threads/"+th.ID, gin.H{"userUID": 4}, "")
	assertError(t, rec, http.StatusForbidden, apperr.KindForbidden)
	rec = app.do(http.MethodDelete, "/forum/threads/"+th.ID, gin.H{"userUID": 3}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReviewsOverHTTP(t *testing.T) {
	app := newTestApp(t, true)

	rec := app.do(http.MethodPost, "/reviews", gin.H{"movie": "Fight Club", "movieId": 550, "stars": "4", "text": "Good"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Review saved!", decode[map[string]any](t, rec)["message"])

	rec = app.do(http.MethodGet, "/reviews?movieId=550", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	reviews := decode[[]models.Review](t, rec)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Guest", reviews[0].User)
	assert.Equal(t, 4, reviews[0].Stars)
	require.NotNil(t, reviews[0].MovieTitle)
	assert.Equal(t, "Fight Club", *reviews[0].MovieTitle)

	rec = app.do(http.MethodGet, "/reviews?movieId=680", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Review](t, rec))
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func TestUserRegistryOverHTTP(t *testing.T) {
	app := newTestApp(t, true)

	rec := app.do(http.MethodPost, "/users/register", gin.H{"username": "ann", "userEmail": "ann@example.com"}, "")
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	rec = app.do(http.MethodPost, "/users/register", gin.H{"username": "ann", "userEmail": "ann@example.com", "userPassword": "secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reg := decode[authResponse](t, rec)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, int64(1), reg.User.UserUID)
	assert.NotContains(t, rec.Body.String(), "userPassword")
	assert.NotEmpty(t, rec.Result().Cookies())

	rec = app.do(http.MethodPost, "/users/register", gin.H{"username": "x", "userEmail": "ANN@example.com", "userPassword": "x"}, "")
	assertError(t, rec, http.StatusConflict, apperr.KindConflict)

	rec = app.do(http.MethodPost, "/users/auth", gin.H{"userEmail": "ann@example.com", "userPassword": "wrong"}, "")
	assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)

	rec = app.do(http.MethodPost, "/users/auth", gin.H{"userEmail": "Ann@Example.com", "userPassword": "secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[authResponse](t, rec)

	rec = app.do(http.MethodPost, "/users", gin.H{"userLanguage": "de"}, "")
	assertError(t, rec, http.StatusUnauthorized, apperr.KindUnauthorized)

	rec = app.do(http.MethodPost, "/users", gin.H{"userUID": 2, "userLanguage": "de"}, login.Token)
	assertError(t, rec, http.StatusForbidden, apperr.KindForbidden)

	rec = app.do(http.MethodPost, "/users", gin.H{"userUID": "1", "userLanguage": "de", "viewCount": 4}, login.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.User](t, rec)
	assert.Equal(t, "de", updated.UserLanguage)
	assert.Equal(t, 4, updated.ViewCount)

	rec = app.do(http.MethodGet, "/users/me", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "de", decode[models.User](t, rec).UserLanguage)

	rec = app.do(http.MethodPost, "/users/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionCookieIdentifiesCaller(t *testing.T) {
	app := newTestApp(t, false)

	rec := app.do(http.MethodPost, "/users/register", gin.H{"username": "ann", "userEmail": "ann@example.com", "userPassword": "secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/playlists", strings.NewReader(`{"name":"Noir"}`))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	app.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[models.Playlist](t, rec)
	assert.Equal(t, int64(1), p.OwnerUID)
	assert.Equal(t, "ann", p.Owner)
}

func TestAuthLimiterIgnoresForwardedFor(t *testing.T) {
	app := newTestApp(t, true, func(cfg *config.Config) {
		cfg.AuthRateLimitRPS = 0.001
	})

	limited := 0
	for i := range 30 {
		req := httptest.NewRequest(http.MethodPost, "/users/auth", strings.NewReader(`{"userEmail":"a@b.co","userPassword":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.RemoteAddr = "198.51.100.7:4000"
		rec := httptest.NewRecorder()
		app.engine.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
			assert.Equal(t, apperr.KindRateLimited, decode[apperr.Body](t, rec).Code)
		}
	}
	assert.Equal(t, 10, limited, "one socket shares one bucket whatever it forwards")
}

func TestTrustedProxyForwardsClientIP(t *testing.T) {
	app := newTestApp(t, true, func(cfg *config.Config) {
		cfg.AuthRateLimitRPS = 0.001
		cfg.TrustedProxies = []string{"198.51.100.7"}
	})

	for i := range 30 {
		req := httptest.NewRequest(http.MethodPost, "/users/auth", strings.NewReader(`{"userEmail":"a@b.co","userPassword":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.RemoteAddr = "198.51.100.7:4000"
		rec := httptest.NewRecorder()
		app.engine.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, true)

	rec := app.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = app.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cinehub_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestLiveFeed(t *testing.T) {
	app := newTestApp(t, true)
	srv := httptest.NewServer(app.engine)
	t.Cleanup(srv.Close)

	rec := app.do(http.MethodPost, "/playlists", gin.H{"name": "Noir", "ownerUID": 7}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[models.Playlist](t, rec)

	rec = app.do(http.MethodGet, "/ws?collection=nope", nil, "")
	assertError(t, rec, http.StatusBadRequest, apperr.KindValidation)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?collection=playlists&id=" + p.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return app.hub.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	rec = app.do(http.MethodPost, "/playlists/"+p.ID+"/vote", gin.H{"userUID": 1, "vote": "up"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e events.Event
	for e.Type != events.EventVoted {
		require.NoError(t, conn.ReadJSON(&e))
	}
	assert.Equal(t, store.Playlists, e.Collection)
	assert.Equal(t, p.ID, e.EntityID)
	assert.Equal(t, 1, e.Score)

	conn.Close()
	assert.Eventually(t, func() bool { return app.hub.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}
