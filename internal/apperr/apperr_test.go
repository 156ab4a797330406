package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthenticated: http.StatusUnauthorized,
		Forbidden:       http.StatusForbidden,
		NotFound:        http.StatusNotFound,
		Conflict:        http.StatusBadRequest,
		InvalidArgument: http.StatusBadRequest,
		Internal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("loading project: %w", NotFoundf("project %s not found", "p1"))
	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Is(err, NotFound))
	assert.Equal(t, "project p1 not found", MessageOf(err))
}

func TestUnclassifiedIsInternal(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.False(t, Is(nil, Internal))
}

func TestWrapKeepsCauseHidden(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(Internal, cause, "failed to list clients")
	assert.Equal(t, "failed to list clients", MessageOf(err))
	assert.ErrorIs(t, err, cause)
}
