package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/respond"
	"github.com/harentsoaR/testmanager-api/internal/services"
)

type AddEvidenceRequest struct {
	Path        string `json:"path" binding:"required"`
	URL         string `json:"url" binding:"required"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size" binding:"gte=0"`
	Name        string `json:"name"`
}

type RemoveEvidenceRequest struct {
	Path string `json:"path" binding:"required"`
}

func (h *Handler) AddEvidence(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req AddEvidenceRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	ev := models.Evidence{Path: req.Path, URL: req.URL, ContentType: req.ContentType, Size: req.Size, Name: req.Name}
	t, err := h.Svc.Tests.AddEvidence(c.Request.Context(), id, c.Param("projectId"), c.Param("testId"), ev)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusCreated, "evidence added successfully", gin.H{"test": t})
}

// RemoveEvidence takes the evidence path from the JSON body or, failing
// that, from ?path=.
func (h *Handler) RemoveEvidence(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		var req RemoveEvidenceRequest
		if err := respond.Bind(c, &req); err != nil {
			respond.Error(c, err)
			return
		}
		path = req.Path
	}
	t, err := h.Svc.Tests.RemoveEvidence(c.Request.Context(), id, c.Param("projectId"), c.Param("testId"), path)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "evidence removed successfully", gin.H{"test": t})
}

// UploadEvidence accepts a multipart form with the file under "file".
func (h *Handler) UploadEvidence(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	bodyLimit := h.UploadMaxBytes + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || c.Request.ContentLength > bodyLimit {
			respond.Error(c, h.uploadTooLarge(c.Request.ContentLength))
			return
		}
		respond.Error(c, apperr.Validation([]apperr.FieldError{{Field: "file", Message: "a file upload is required"}}))
		return
	}
	if fh.Size > h.UploadMaxBytes {
		respond.Error(c, h.uploadTooLarge(fh.Size))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, apperr.Wrap(apperr.InvalidArgument, err, "unreadable file upload"))
		return
	}
	defer f.Close()

	t, ev, err := h.Svc.Tests.UploadEvidence(c.Request.Context(), id, c.Param("projectId"), c.Param("testId"), services.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	h.Log.WithFields(logrus.Fields{"uid": id.UID, "path": ev.Path, "size": ev.Size}).
		Info("Event ID: EVIDENCE-002, Description: evidence uploaded")
	respond.OK(c, http.StatusCreated, "evidence uploaded successfully", gin.H{"test": t, "evidence": ev})
}

func (h *Handler) uploadTooLarge(size int64) error {
	return apperr.Validation([]apperr.FieldError{{
		Field:   "file",
		Message: fmt.Sprintf("file exceeds the %d byte limit", h.UploadMaxBytes),
		Value:   size,
	}})
}

// DownloadEvidence streams the file stored at ?path=.
func (h *Handler) DownloadEvidence(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		respond.Error(c, apperr.Validation([]apperr.FieldError{{Field: "path", Message: "path is required"}}))
		return
	}
	rc, ev, err := h.Svc.Tests.OpenEvidence(c.Request.Context(), id, c.Param("projectId"), c.Param("testId"), path)
	if err != nil {
		respond.Error(c, err)
		return
	}
	defer rc.Close()

	contentType := ev.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{}
	if ev.Name != "" {
		headers["Content-Disposition"] = "inline; filename=" + strconv.Quote(ev.Name)
	}
	c.DataFromReader(http.StatusOK, ev.Size, contentType, rc, headers)
}
