package snapshot

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pihole/pihole-api/internal/ftl/shm"
)

const testLayoutVersion = 1

// writeSegmentFile creates one zeroed segment file of the right size under
// dir, matching the on-disk shape Facade.Open expects.
func writeSegmentFile(t *testing.T, dir, prefix string, name shm.Name, size int) {
	t.Helper()
	path := filepath.Join(dir, prefix+"-"+string(name))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
}

func writeSettings(t *testing.T, dir, prefix string, epoch uint32) {
	t.Helper()
	buf := make([]byte, shm.SettingsStride)
	binary.LittleEndian.PutUint32(buf[0:4], testLayoutVersion)
	binary.LittleEndian.PutUint32(buf[4:8], epoch)
	require.NoError(t, os.WriteFile(filepath.Join(dir, prefix+"-"+string(shm.SegmentSettings)), buf, 0o600))
}

func openTestFacade(t *testing.T) (*Facade, string, string) {
	t.Helper()
	dir := t.TempDir()
	const prefix = "pihole-FTL"

	writeSettings(t, dir, prefix, 1)
	writeSegmentFile(t, dir, prefix, shm.SegmentLock, 1)
	writeSegmentFile(t, dir, prefix, shm.SegmentCounters, shm.CountersStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentStrings, 16)
	writeSegmentFile(t, dir, prefix, shm.SegmentClients, shm.ClientStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentDomains, shm.DomainStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentUpstreams, shm.UpstreamStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentQueries, shm.QueryStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentOverTime, shm.OverTimeStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentPerClientOverTime, shm.OverTimeClientStride)

	f, err := Open(Config{
		ShmDir:          dir,
		Prefix:          prefix,
		LockSidecarPath: filepath.Join(dir, "test.lock"),
		LayoutVersion:   testLayoutVersion,
	})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, dir, prefix
}

func TestOpenValidatesLayoutVersion(t *testing.T) {
	dir := t.TempDir()
	const prefix = "pihole-FTL"

	writeSettings(t, dir, prefix, 1)
	writeSegmentFile(t, dir, prefix, shm.SegmentLock, 1)
	writeSegmentFile(t, dir, prefix, shm.SegmentCounters, shm.CountersStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentStrings, 16)
	writeSegmentFile(t, dir, prefix, shm.SegmentClients, shm.ClientStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentDomains, shm.DomainStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentUpstreams, shm.UpstreamStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentQueries, shm.QueryStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentOverTime, shm.OverTimeStride)
	writeSegmentFile(t, dir, prefix, shm.SegmentPerClientOverTime, shm.OverTimeClientStride)

	_, err := Open(Config{
		ShmDir:          dir,
		Prefix:          prefix,
		LockSidecarPath: filepath.Join(dir, "test.lock"),
		LayoutVersion:   testLayoutVersion + 1,
	})
	require.Error(t, err)
}

func TestWithRunsCallbackWhenEpochUnchanged(t *testing.T) {
	f, _, _ := openTestFacade(t)

	called := false
	err := f.With(func(snap Snapshot) error {
		called = true
		require.Equal(t, uint32(1), snap.Settings.GlobalSHMCounter)
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestWithReturnsStaleSnapshotAndRemapsOnEpochChange(t *testing.T) {
	f, dir, prefix := openTestFacade(t)

	// The resolver grows the queries segment and bumps global_shm_counter
	// in the same critical section a real epoch change represents.
	writeSettings(t, dir, prefix, 2)
	grown := make([]byte, shm.QueryStride*2)
	grown[0] = 0x57
	require.NoError(t, os.WriteFile(filepath.Join(dir, prefix+"-"+string(shm.SegmentQueries)), grown, 0o600))

	err := f.With(func(Snapshot) error {
		t.Fatal("callback must not run on the stale call")
		return nil
	})
	require.Error(t, err)

	// The segment must already reflect the grown file from the same call
	// that detected staleness, before any retry.
	require.Equal(t, 2, f.queriesSeg.Len())

	called := false
	err = f.With(func(snap Snapshot) error {
		called = true
		require.Equal(t, uint32(2), snap.Settings.GlobalSHMCounter)
		require.Equal(t, 2, snap.Queries.Len())
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestWithRetryRetriesOnceThenSucceeds(t *testing.T) {
	f, dir, prefix := openTestFacade(t)

	writeSettings(t, dir, prefix, 2)

	calls := 0
	err := f.WithRetry(func(snap Snapshot) error {
		calls++
		require.Equal(t, uint32(2), snap.Settings.GlobalSHMCounter)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
