package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/middleware"
	"github.com/harentsoaR/testmanager-api/internal/respond"
	"github.com/harentsoaR/testmanager-api/internal/services"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

// Handler groups the HTTP endpoints. Each endpoint is a method on it.
type Handler struct {
	Svc            *services.Services
	Log            logrus.FieldLogger
	UploadMaxBytes int64
	// BlobState, when set, reports the evidence storage breaker state on /health.
	BlobState func() string
}

func NewHandler(svc *services.Services, log logrus.FieldLogger, uploadMaxBytes int64) *Handler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 10 << 20
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Svc: svc, Log: log, UploadMaxBytes: uploadMaxBytes}
}

// caller returns the identity set by the auth middleware, or aborts with 401.
func caller(c *gin.Context) (*auth.Identity, bool) {
	id, ok := middleware.Identity(c)
	if !ok {
		respond.Error(c, apperr.Unauthenticatedf("access token not provided"))
	}
	return id, ok
}

// listOptions reads ?page= and ?limit=; bad values fall back to defaults.
func listOptions(c *gin.Context) store.ListOptions {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return store.ListOptions{Page: page, Limit: limit}.Normalize()
}

// Pagination is the paging block of list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func pagination[T any](p store.Page[T]) Pagination {
	return Pagination{Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages}
}

// Health answers the unauthenticated liveness probe.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{
		"success":   true,
		"message":   "testmanager-api is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.BlobState != nil {
		body["blobStore"] = h.BlobState()
	}
	c.JSON(http.StatusOK, body)
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(c *gin.Context) {
	respond.Error(c, apperr.NotFoundf("route %s %s not found", c.Request.Method, c.Request.URL.Path))
}
