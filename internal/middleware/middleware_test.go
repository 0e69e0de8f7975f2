package middleware

import (
	"bytes"
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

	"cinehub/internal/apperr"
	"cinehub/internal/auth"
	"cinehub/internal/logger"
	"cinehub/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) apperr.Body {
	t.Helper()
	var body apperr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Discard()), ErrorHandler())
	r.GET("/domain", func(c *gin.Context) {
		c.Error(apperr.NotFound("Playlist not found"))
	})
	r.GET("/internal", func(c *gin.Context) {
		c.Error(errors.New("disk on fire"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
		c.Error(apperr.Validation("too late"))
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/domain", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.Body{Error: "Playlist not found", Code: apperr.KindNotFound}, errorBody(t, rec))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/internal", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := errorBody(t, rec)
	assert.Equal(t, apperr.KindInternal, body.Code)
	assert.NotContains(t, body.Error, "disk")

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Discard()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := serve(r, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	limiter, err := NewRateLimiter(0.001, 2)
	require.NoError(t, err)

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "buckets are per client")

	r := gin.New()
	r.Use(ErrorHandler(), limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
	rec := serve(r, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, apperr.KindRateLimited, errorBody(t, rec).Code)
}

func TestIdentity(t *testing.T) {
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	r := gin.New()
	r.Use(ErrorHandler(), Identity(tokens))
	r.GET("/whoami", func(c *gin.Context) {
		id, verified := Caller(c)
		c.JSON(http.StatusOK, gin.H{"uid": id.UserUID, "verified": verified, "admin": id.IsAdmin})
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	whoami := func(header string) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := serve(r, req)
		var out map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec, out
	}

	rec, out := whoami("")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, out["uid"])
	assert.Equal(t, false, out["verified"])

	token, err := tokens.Issue(models.User{UserUID: 4, Username: "four", UserTier: models.AdminTier})
	require.NoError(t, err)
	rec, out = whoami("Bearer " + token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, out["uid"])
	assert.Equal(t, true, out["verified"])
	assert.Equal(t, true, out["admin"])

	rec, _ = whoami("Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := auth.NewTokenIssuer("other-secret", time.Hour)
	forged, err := other.Issue(models.User{UserUID: 4})
	require.NoError(t, err)
	rec, _ = whoami("Bearer " + forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type signupRequest struct {
	Username string `json:"username" binding:"notblank"`
	Email    string `json:"userEmail" binding:"notblank,email"`
	Age      int    `json:"age" binding:"omitempty,min=13"`
}

func TestBindingError(t *testing.T) {
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/", func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(BindingError(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		body string
		want string
	}{
		{`{"username":"  ","userEmail":"a@b.co"}`, "username required"},
		{`{"username":"ann"}`, "userEmail required"},
		{`{"username":"ann","userEmail":"nope"}`, "Invalid userEmail"},
		{`{"username":"ann","userEmail":"a@b.co","age":3}`, "Invalid age"},
		{`{"username":`, "Malformed request body"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(r, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.body)
		body := errorBody(t, rec)
		assert.Equal(t, apperr.KindValidation, body.Code)
		assert.Equal(t, tc.want, body.Error, tc.body)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"username":"ann","userEmail":"a@b.co"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}
