package respond

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, devMode bool, h gin.HandlerFunc, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	UseJSONFieldNames()
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		c.Set(DevModeKey, devMode)
		h(c)
	})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.Unauthenticatedf("no"), http.StatusUnauthorized},
		{apperr.Forbiddenf("no"), http.StatusForbidden},
		{apperr.NotFoundf("no"), http.StatusNotFound},
		{apperr.Conflictf("no"), http.StatusBadRequest},
		{apperr.InvalidArgumentf("no"), http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w, env := serve(t, false, func(c *gin.Context) { Error(c, tc.err) }, "")
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.False(t, env.Success)
	}
}

func TestInternalErrorsHideDetails(t *testing.T) {
	boom := errors.New("connection refused")

	_, env := serve(t, false, func(c *gin.Context) { Error(c, boom) }, "")
	assert.Equal(t, "internal server error", env.Message)
	assert.Empty(t, env.Stack)

	_, env = serve(t, true, func(c *gin.Context) { Error(c, boom) }, "")
	assert.Equal(t, "internal server error", env.Message)
	assert.Contains(t, env.Stack, "connection refused")
}

type sample struct {
	FullName string `json:"fullName" binding:"required,min=2"`
	Role     string `json:"role" binding:"omitempty,oneof=admin client"`
}

func TestBindReportsJSONNames(t *testing.T) {
	bind := func(c *gin.Context) {
		var s sample
		if err := Bind(c, &s); err != nil {
			Error(c, err)
			return
		}
		OK(c, http.StatusOK, "ok", s)
	}

	w, env := serve(t, false, bind, `{"role":"root"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Errors, 2)
	assert.Equal(t, "fullName", env.Errors[0].Field)
	assert.Equal(t, "fullName is required", env.Errors[0].Message)
	assert.Equal(t, "role", env.Errors[1].Field)

	w, env = serve(t, false, bind, `{"fullName":"Ana"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestBindingErrorKinds(t *testing.T) {
	assert.True(t, apperr.Is(BindingError(io.EOF), apperr.InvalidArgument))

	err := json.Unmarshal([]byte("{"), &map[string]string{})
	require.Error(t, err)
	assert.True(t, apperr.Is(BindingError(err), apperr.InvalidArgument))
}
