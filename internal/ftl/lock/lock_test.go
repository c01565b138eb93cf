package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseNoContention(t *testing.T) {
	dir := t.TempDir()
	waiting := make([]byte, 1)

	l := New(filepath.Join(dir, "ftl.lock"), waiting)

	guard, err := l.Acquire()
	require.NoError(t, err)
	require.NotNil(t, guard)

	require.NoError(t, guard.Release())
}

func TestAcquireDoesNotBlockWhenResolverNotWaiting(t *testing.T) {
	dir := t.TempDir()
	waiting := []byte{0}

	l := New(filepath.Join(dir, "ftl.lock"), waiting)

	guard, err := l.Acquire()
	require.NoError(t, err)
	require.NoError(t, guard.Release())
}

func TestReleaseNilGuardIsNoop(t *testing.T) {
	var g *Guard
	require.NoError(t, g.Release())
}
