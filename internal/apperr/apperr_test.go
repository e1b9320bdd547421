package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestWrap_IsKindAndCause(t *testing.T) {
	cause := eris.New("socket closed")
	err := Wrap(ErrExternal, cause, "저장에 실패했습니다.")

	assert.True(t, errors.Is(err, ErrExternal))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "저장에 실패했습니다.", Message(err))
	assert.Contains(t, err.Error(), "socket closed")
}

func TestMessage_UnclassifiedFallsBack(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.NotEmpty(t, Message(errors.New("boom")))
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{New(ErrValidation, "x"), http.StatusBadRequest},
		{New(ErrMalformedInput, "x"), http.StatusBadRequest},
		{New(ErrNotFound, "x"), http.StatusNotFound},
		{New(ErrNotConfirmed, "x"), http.StatusPreconditionRequired},
		{New(ErrNotReady, "x"), http.StatusServiceUnavailable},
		{Wrap(ErrExternal, errors.New("x"), "x"), http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err))
	}
}
