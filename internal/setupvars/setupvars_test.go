package setupvars

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadFindsExactKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "setupVars.conf", "PIHOLE_INTERFACE=eth0\nAPI_TOKEN=abc123\n")

	value, found, err := Read(path, "API_TOKEN")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "abc123", value)
}

func TestReadEmptyValueIsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "setupVars.conf", "API_TOKEN=\n")

	_, found, err := Read(path, "API_TOKEN")
	require.NoError(t, err)
	require.False(t, found)
}

// TestReadTruncatesValueAtSecondEquals mirrors original_source's
// read_setup_vars, which calls split.next() twice on line.split("=") and so
// returns only the token between the first and second "=" — a value that
// itself contains "=" (e.g. a base64-encoded password hash) is truncated
// there rather than returned in full.
func TestReadTruncatesValueAtSecondEquals(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "setupVars.conf", "WEBPASSWORD=YWJjZGVm==extra\n")

	value, found, err := Read(path, "WEBPASSWORD")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "YWJjZGVm", value)
}

func TestReadListSplitsCommas(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "setupVars.conf", "API_EXCLUDE_DOMAINS=a.com, b.com,c.com\n")

	list, err := ReadList(path, "API_EXCLUDE_DOMAINS")
	require.NoError(t, err)
	require.Equal(t, []string{"a.com", "b.com", "c.com"}, list)
}

// TestFileStatus reproduces §8 seed scenario 4 literally.
func TestFileStatus(t *testing.T) {
	dir := t.TempDir()

	require.Equal(t, "unknown", FileStatus(filepath.Join(dir, "missing.conf")))

	disabled := writeFile(t, dir, "disabled.conf", DisableLine+"\n")
	require.Equal(t, "disabled", FileStatus(disabled))

	enabled := writeFile(t, dir, "enabled.conf", "addn-hosts=/etc/pihole/gravity.list\n")
	require.Equal(t, "enabled", FileStatus(enabled))

	ambiguous := writeFile(t, dir, "ambiguous.conf", DisableLine+"\n"+DisableLine+"\n")
	require.Equal(t, "unknown", FileStatus(ambiguous))
}
