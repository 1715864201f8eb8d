package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidInput:    http.StatusUnprocessableEntity,
		KindConflict:        http.StatusUnprocessableEntity,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusUnauthorized,
		KindNotFound:        http.StatusNotFound,
		KindStorageFailure:  http.StatusInternalServerError,
		KindUnknown:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Status(), kind.String())
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("loading: %w", Wrap(KindNotFound, cause, "Could not find product"))

	assert.True(t, errors.Is(err, NotFound))
	assert.False(t, errors.Is(err, Conflict))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAsClassifiesUnknownErrors(t *testing.T) {
	e := As(errors.New("driver exploded"))
	require.NotNil(t, e)
	assert.Equal(t, KindStorageFailure, e.Kind)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())

	orig := New(KindForbidden, "nope")
	assert.Same(t, orig, As(orig))
}

func TestWithStatusOverride(t *testing.T) {
	e := New(KindUnauthenticated, "Invalid credentials").WithStatus(http.StatusForbidden)
	assert.Equal(t, http.StatusForbidden, e.HTTPStatus())
	assert.True(t, errors.Is(e, Unauthenticated))
}

func TestInvalidListsFields(t *testing.T) {
	e := Invalid("Invalid inputs passed", "name", "gtin")
	assert.Equal(t, []string{"name", "gtin"}, e.Fields)
	assert.Contains(t, e.Error(), "name, gtin")
}
