package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/respond"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id (reusing an incoming
// X-Request-ID) and logs one line per request once it completes.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("requestId", reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"requestId": reqID,
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start).String(),
			"clientIP":  c.ClientIP(),
		}
		if id, ok := Identity(c); ok {
			fields["uid"] = id.UID
		}
		entry := log.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last().Err)
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Event ID: HTTP-500, Description: request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Event ID: HTTP-400, Description: request rejected")
		default:
			entry.Info("Event ID: HTTP-200, Description: request served")
		}
	}
}

// Recovery turns panics into a 500 envelope.
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).WithField("stack", string(debug.Stack())).
					Error("Event ID: HTTP-PANIC, Description: recovered from panic")
				respond.Error(c, apperr.Wrap(apperr.Internal, fmt.Errorf("panic: %v", r), "internal server error"))
			}
		}()
		c.Next()
	}
}
