package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindForbidden:    http.StatusForbidden,
		KindInvalidInput: http.StatusBadRequest,
		KindInvalidState: http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindMismatch:     http.StatusConflict,
		KindUnauthorized: http.StatusUnauthorized,
		KindUpstream:     http.StatusBadGateway,
		KindUnknown:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfUnwrapsChain(t *testing.T) {
	base := Conflict("busy")
	wrapped := fmt.Errorf("outer context: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(wrapped, KindNotFound))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestMismatchCarriesData(t *testing.T) {
	diffs := []int{1, 2, 3}
	err := Mismatch(diffs, "counts differ")

	assert.Equal(t, KindMismatch, KindOf(err))
	assert.Equal(t, diffs, DataOf(err))
	assert.Nil(t, DataOf(Conflict("no data")))
}

func TestUpstreamWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream(cause, "gateway charge failed")

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gateway charge failed")
}
