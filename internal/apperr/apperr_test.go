package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("create booking: %w", Conflict("dates unavailable"))

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, CodeConflict, CodeOf(err))
}

func TestWrapPreservesCode(t *testing.T) {
	inner := NotFound("client not found")
	err := Wrap(inner, CodeInternal, "lookup failed")

	assert.True(t, HasCode(err, CodeNotFound))
	assert.Equal(t, "lookup failed", err.Error())
}

func TestUnavailableCarriesDetails(t *testing.T) {
	err := Unavailable(errors.New("connection reset"), map[string]any{"saved": true})

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, true, DetailsOf(err)["saved"])
	assert.Equal(t, "connection reset", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeOf(InvalidInput("x"))))
	assert.Equal(t, http.StatusConflict, HTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeServiceUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeOf(errors.New("boom"))))
}
