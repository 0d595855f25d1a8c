package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsAndMessages(t *testing.T) {
	assert.EqualError(t, NotAuthenticated(), "not authenticated")
	assert.EqualError(t, Unauthorized("nope"), "nope")
	assert.EqualError(t, NotFound("expense"), "expense not found")
	assert.EqualError(t, Invalid("bad value %d", 7), "bad value 7")
}

func TestIsKind(t *testing.T) {
	err := NotFound("budget")

	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindInvalid))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load expense: %w", NotFound("expense"))

	assert.True(t, IsKind(err, KindNotFound))
}

func TestErrorsIsMatchesSameKind(t *testing.T) {
	assert.True(t, errors.Is(Invalid("a"), Invalid("b")))
	assert.False(t, errors.Is(Invalid("a"), NotFound("x")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(NotAuthenticated()))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Unauthorized("nope")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("expense")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid("bad")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("db broke")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("wrapped: %w", errors.New("db broke"))))
}
