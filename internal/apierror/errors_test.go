package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindUnauthorized, http.StatusUnauthorized},
		{KindBadRequest, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindStaleSnapshot, http.StatusInternalServerError},
		{KindFtlConnectionFail, http.StatusBadGateway},
		{Kind("made-up"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		err := New(tc.kind, "boom")
		require.Equal(t, tc.status, err.Status())
		require.Equal(t, tc.status, StatusOf(err))
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("socket reset")
	err := Wrap(KindFtlReadError, "reading reply", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, KindFtlReadError, KindOf(err))
	require.Contains(t, err.Error(), "socket reset")
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	require.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
}

func TestIsStale(t *testing.T) {
	require.True(t, IsStale(New(KindStaleSnapshot, "epoch advanced")))
	require.False(t, IsStale(New(KindNotFound, "missing")))
}
