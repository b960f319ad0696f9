package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad amount"), http.StatusBadRequest},
		{NotFound("no such customer"), http.StatusNotFound},
		{InsufficientStock("stock would go negative"), http.StatusConflict},
		{Conflict("concurrent modification"), http.StatusConflict},
		{Gateway("provider unreachable"), http.StatusBadGateway},
		{Internal("boom"), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := InsufficientStock("only 2 left")
	wrapped := fmt.Errorf("apply batch: %w", base)

	assert.Equal(t, KindInsufficientStock, KindOf(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("pq: deadlock detected")
	err := Wrap(KindConflict, "could not lock aggregates", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "could not lock aggregates", err.Error())
}

func TestRetryableOnlyForConflict(t *testing.T) {
	assert.True(t, IsRetryable(Conflict("retry me")))
	assert.False(t, IsRetryable(InsufficientStock("nope")))
	assert.False(t, IsRetryable(Validation("nope")))

	env := FromError(Conflict("retry me"))
	assert.True(t, env.Retryable)
	assert.Equal(t, "retry me", env.Detail)
}
