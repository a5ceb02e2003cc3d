package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	internal := errors.New("boom")
	appErr := Wrap(internal, "something failed")

	require.Equal(t, "something failed: boom", appErr.Error())
	require.ErrorIs(t, appErr, internal)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrEmailTaken)
	require.Equal(t, "EMAIL_TAKEN", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.StatusCode)

	generic := FromError(errors.New("unexpected"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.Equal(t, http.StatusInternalServerError, generic.StatusCode)
}

func TestWithInternalCopies(t *testing.T) {
	internal := errors.New("db down")
	copied := ErrInternalServer.WithInternal(internal)

	require.Nil(t, ErrInternalServer.Internal)
	require.ErrorIs(t, copied, internal)
}
