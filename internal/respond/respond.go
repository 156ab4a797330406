// Package respond writes the JSON envelope every endpoint answers with:
//
//	{"success": true, "message": "...", "data": {...}}
//	{"success": false, "message": "...", "errors": [{"field": ..., "message": ..., "value": ...}]}
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
)

// DevModeKey is the gin context key that enables stack traces in error bodies.
const DevModeKey = "devMode"

type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

func OK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Error aborts the request with the envelope matching err's kind. The error
// is also attached to the context for the request logger.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := apperr.KindOf(err)
	body := Envelope{Success: false, Message: apperr.MessageOf(err)}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Errors = ae.Fields
	}
	if kind == apperr.Internal && c.GetBool(DevModeKey) {
		body.Stack = fmt.Sprintf("%+v", err)
	}
	c.AbortWithStatusJSON(kind.HTTPStatus(), body)
}

var registerNames sync.Once

// UseJSONFieldNames makes validation errors report JSON field names instead
// of Go struct field names.
func UseJSONFieldNames() {
	registerNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			}
			return name
		})
	})
}

// Bind decodes the JSON body into dst and runs its binding rules, turning
// failures into InvalidArgument errors with per-field details.
func Bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return BindingError(err)
	}
	return nil
}

// BindingError converts gin binding failures into apperr errors.
func BindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{
				Field:   fieldPath(fe),
				Message: fieldMessage(fe),
				Value:   fe.Value(),
			})
		}
		return apperr.Validation(fields)
	}
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return apperr.InvalidArgumentf("request body is required")
	case errors.As(err, &typeErr):
		return apperr.Validation([]apperr.FieldError{{Field: typeErr.Field, Message: "has the wrong type"}})
	case errors.As(err, &syntax):
		return apperr.InvalidArgumentf("malformed JSON body")
	}
	return apperr.Wrap(apperr.InvalidArgument, err, "invalid request")
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s characters", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}
