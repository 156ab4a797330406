package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/respond"
	"github.com/harentsoaR/testmanager-api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T) (*gin.Engine, *utils.TokenManager, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	tokens := utils.NewTokenManager("k", time.Hour)
	r := gin.New()
	r.Use(RequestLogger(logger), Recovery(logger))

	api := r.Group("/api", AuthMiddleware(auth.NewResolver(tokens, nil, logger)))
	api.GET("/whoami", func(c *gin.Context) {
		id, _ := Identity(c)
		c.JSON(http.StatusOK, id)
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r, tokens, hook
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, tokens, _ := newEngine(t)

	w := do(r, http.MethodGet, "/api/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var env respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)

	tok, _, err := tokens.Generate("u1", "u1@x.io", "collaborator", "")
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/api/whoami", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uid":"u1"`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/api/admin", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, _, err := tokens.Generate("a1", "", "admin", "")
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/api/admin", admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoveryAndRequestLog(t *testing.T) {
	r, _, hook := newEngine(t)

	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "internal server error", env.Message)

	var levels []logrus.Level
	for _, e := range hook.AllEntries() {
		levels = append(levels, e.Level)
	}
	assert.Contains(t, levels, logrus.ErrorLevel)
	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, 500, last.Data["status"])
}
