package lists

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddGetRemove(t *testing.T) {
	repo := NewRepository(t.TempDir())

	require.NoError(t, repo.Add(Whitelist, "example.com"))

	domains, err := repo.Get(Whitelist)
	require.NoError(t, err)
	require.Equal(t, []string{"example.com"}, domains)

	require.NoError(t, repo.Remove(Whitelist, "example.com"))

	domains, err = repo.Get(Whitelist)
	require.NoError(t, err)
	require.Empty(t, domains)
}

func TestAddDuplicateFails(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.Add(Blacklist, "ads.example.com"))

	err := repo.Add(Blacklist, "ads.example.com")
	require.Error(t, err)
}

func TestRemoveMissingFails(t *testing.T) {
	repo := NewRepository(t.TempDir())

	err := repo.Remove(Wildlist, "missing.example.com")
	require.Error(t, err)
}

func TestGetMissingFileReturnsEmpty(t *testing.T) {
	repo := NewRepository(t.TempDir())

	domains, err := repo.Get(Whitelist)
	require.NoError(t, err)
	require.Empty(t, domains)
}
