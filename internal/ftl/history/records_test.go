package history

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
)

const magicByte = 0x57

// writeSegment writes one shm segment file under dir and opens it read-only,
// mirroring how internal/ftl/snapshot.Open maps the resolver's real segments.
func writeSegment(t *testing.T, dir, prefix string, name shm.Name, stride int, data []byte) *shm.Segment {
	t.Helper()
	path := filepath.Join(dir, prefix+"-"+string(name))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	seg, err := shm.Open(dir, prefix, name, stride, false)
	require.NoError(t, err)
	t.Cleanup(func() { seg.Close() })
	return seg
}

func putStr(buf []byte, id uint64, s string) {
	copy(buf[id:], s)
}

func putQuery(buf []byte, domainID, clientID, upstreamID int32) {
	buf[0] = magicByte
	binary.LittleEndian.PutUint32(buf[32:36], uint32(domainID))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(clientID))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(upstreamID))
}

func putDomain(buf []byte, strID uint64) {
	buf[0] = magicByte
	binary.LittleEndian.PutUint64(buf[24:32], strID)
}

func putClient(buf []byte, ipStrID, nameStrID uint64, nameUnknown bool) {
	buf[0] = magicByte
	binary.LittleEndian.PutUint64(buf[12:20], ipStrID)
	binary.LittleEndian.PutUint64(buf[20:28], nameStrID)
	if nameUnknown {
		buf[28] = 1
	}
}

func putUpstream(buf []byte, ipStrID, nameStrID uint64, nameUnknown bool) {
	buf[0] = magicByte
	binary.LittleEndian.PutUint64(buf[12:20], ipStrID)
	binary.LittleEndian.PutUint64(buf[20:28], nameStrID)
	if nameUnknown {
		buf[28] = 1
	}
}

// buildTestSnapshot lays out two queries sharing the same domain, client and
// upstream, so BuildRecords' memoization path is exercised by the second
// query of each kind resolving from its cache instead of the segment.
func buildTestSnapshot(t *testing.T) snapshot.Snapshot {
	dir := t.TempDir()
	const prefix = "pihole-FTL"

	strs := make([]byte, 256)
	putStr(strs, 8, "example.com")
	putStr(strs, 32, "10.0.0.5")
	putStr(strs, 48, "laptop")
	putStr(strs, 64, "9.9.9.9")
	putStr(strs, 80, "dns.quad9.net")
	stringsSeg := writeSegment(t, dir, prefix, shm.SegmentStrings, 1, strs)

	domains := make([]byte, shm.DomainStride)
	putDomain(domains, 8)
	domainsSeg := writeSegment(t, dir, prefix, shm.SegmentDomains, shm.DomainStride, domains)

	clients := make([]byte, shm.ClientStride)
	putClient(clients, 32, 48, false)
	clientsSeg := writeSegment(t, dir, prefix, shm.SegmentClients, shm.ClientStride, clients)

	upstreams := make([]byte, shm.UpstreamStride)
	putUpstream(upstreams, 64, 80, false)
	upstreamsSeg := writeSegment(t, dir, prefix, shm.SegmentUpstreams, shm.UpstreamStride, upstreams)

	queries := make([]byte, shm.QueryStride*2)
	putQuery(queries[0:shm.QueryStride], 0, 0, 0)
	putQuery(queries[shm.QueryStride:2*shm.QueryStride], 0, 0, 0)
	queriesSeg := writeSegment(t, dir, prefix, shm.SegmentQueries, shm.QueryStride, queries)

	return snapshot.Snapshot{
		Strings:   shm.NewStringTable(stringsSeg),
		Clients:   clientsSeg,
		Domains:   domainsSeg,
		Upstreams: upstreamsSeg,
		Queries:   queriesSeg,
	}
}

func TestBuildRecordsResolvesDisplayStrings(t *testing.T) {
	snap := buildTestSnapshot(t)
	records := BuildRecords(snap)

	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, "example.com", r.DomainName)
		require.Equal(t, "10.0.0.5", r.ClientIP)
		require.Equal(t, "laptop", r.ClientName)
		require.Equal(t, "9.9.9.9", r.UpstreamIP)
		require.Equal(t, "dns.quad9.net", r.UpstreamName)
	}
}

func TestBuildRecordsSkipsUnknownUpstream(t *testing.T) {
	dir := t.TempDir()
	const prefix = "pihole-FTL"

	strs := make([]byte, 64)
	putStr(strs, 8, "example.com")
	stringsSeg := writeSegment(t, dir, prefix, shm.SegmentStrings, 1, strs)

	domains := make([]byte, shm.DomainStride)
	putDomain(domains, 8)
	domainsSeg := writeSegment(t, dir, prefix, shm.SegmentDomains, shm.DomainStride, domains)

	clients := make([]byte, shm.ClientStride)
	putClient(clients, 0, 0, true)
	clientsSeg := writeSegment(t, dir, prefix, shm.SegmentClients, shm.ClientStride, clients)

	upstreams := make([]byte, 0)
	upstreamsSeg := writeSegment(t, dir, prefix, shm.SegmentUpstreams, shm.UpstreamStride, upstreams)

	queries := make([]byte, shm.QueryStride)
	putQuery(queries, 0, 0, -1)
	queriesSeg := writeSegment(t, dir, prefix, shm.SegmentQueries, shm.QueryStride, queries)

	snap := snapshot.Snapshot{
		Strings:   shm.NewStringTable(stringsSeg),
		Clients:   clientsSeg,
		Domains:   domainsSeg,
		Upstreams: upstreamsSeg,
		Queries:   queriesSeg,
	}

	records := BuildRecords(snap)
	require.Len(t, records, 1)
	require.Equal(t, "example.com", records[0].DomainName)
	require.Empty(t, records[0].ClientName)
	require.Empty(t, records[0].UpstreamIP)
}

func TestBuildRecordsSkipsBadMagic(t *testing.T) {
	dir := t.TempDir()
	const prefix = "pihole-FTL"

	stringsSeg := writeSegment(t, dir, prefix, shm.SegmentStrings, 1, make([]byte, 16))
	domainsSeg := writeSegment(t, dir, prefix, shm.SegmentDomains, shm.DomainStride, make([]byte, shm.DomainStride))
	clientsSeg := writeSegment(t, dir, prefix, shm.SegmentClients, shm.ClientStride, make([]byte, shm.ClientStride))
	upstreamsSeg := writeSegment(t, dir, prefix, shm.SegmentUpstreams, shm.UpstreamStride, make([]byte, shm.UpstreamStride))

	queries := make([]byte, shm.QueryStride)
	// leave magic byte zero: MagicOK() is false, record must be skipped.
	queriesSeg := writeSegment(t, dir, prefix, shm.SegmentQueries, shm.QueryStride, queries)

	snap := snapshot.Snapshot{
		Strings:   shm.NewStringTable(stringsSeg),
		Clients:   clientsSeg,
		Domains:   domainsSeg,
		Upstreams: upstreamsSeg,
		Queries:   queriesSeg,
	}

	records := BuildRecords(snap)
	require.Empty(t, records)
}
