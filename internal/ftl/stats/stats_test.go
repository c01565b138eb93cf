package stats

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/ftl/socket"
)

func encodeI32(v int32) []byte {
	u := uint32(v)
	return []byte{0xd2, byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
}

func encodeI64(v int64) []byte {
	u := uint64(v)
	b := make([]byte, 9)
	b[0] = 0xd3
	for i := 0; i < 8; i++ {
		b[1+i] = byte(u >> (56 - i*8))
	}
	return b
}

func encodeF32(v float32) []byte {
	bits := math.Float32bits(v)
	return []byte{0xca, byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}
}

// TestSummaryMatchesSeedScenario reproduces §8 seed scenario 1 literally.
func TestSummaryMatchesSeedScenario(t *testing.T) {
	var buf []byte
	buf = append(buf, encodeI32(10)...)  // domains_blocked
	buf = append(buf, encodeI32(100)...) // total
	buf = append(buf, encodeI32(25)...)  // blocked
	buf = append(buf, encodeF32(0.25)...)
	buf = append(buf, encodeI32(40)...) // unique_domains
	buf = append(buf, encodeI32(50)...) // forwarded
	buf = append(buf, encodeI32(25)...) // cached
	buf = append(buf, encodeI32(5)...)  // clients
	buf = append(buf, encodeI32(4)...)  // unique_clients
	buf = append(buf, encodeI32(1)...)  // status
	buf = append(buf, 0xc1)

	conn := socket.NewFakeConn(map[string][]byte{"stats": buf})
	s, err := GetSummary(context.Background(), conn)
	require.NoError(t, err)

	require.Equal(t, Summary{
		DomainsBlocked:   10,
		TotalQueries:     100,
		BlockedQueries:   25,
		PercentBlocked:   0.25,
		UniqueDomains:    40,
		ForwardedQueries: 50,
		CachedQueries:    25,
		TotalClients:     5,
		UniqueClients:    4,
		Status:           1,
	}, s)
}

func TestDBStatsMatchesSeedScenario(t *testing.T) {
	var buf []byte
	buf = append(buf, encodeI32(340934)...)
	buf = append(buf, encodeI64(85843)...)
	buf = append(buf, 0xd9, 5)
	buf = append(buf, []byte("3.0.1")...)
	buf = append(buf, 0xc1)

	conn := socket.NewFakeConn(map[string][]byte{"dbstats": buf})
	d, err := GetDBStats(context.Background(), conn)
	require.NoError(t, err)
	require.Equal(t, DBStats{Queries: 340934, FileSize: 85843, SQLiteVersion: "3.0.1"}, d)
}

func TestQueryTypeFractionsFromCounters(t *testing.T) {
	c := shm.Counters{TotalQueries: 10}
	c.QueryTypeCount[0] = 7 // A
	c.QueryTypeCount[1] = 3 // AAAA

	fractions := QueryTypeFractionsFromCounters(c)
	require.InDelta(t, 0.7, fractions["A"], 1e-6)
	require.InDelta(t, 0.3, fractions["AAAA"], 1e-6)
}

func TestPercentBlockedZeroWhenTotalZero(t *testing.T) {
	require.Equal(t, float32(0), PercentBlockedOf(0, 0))
}

func TestTopNCapsAndBreaksTiesLexically(t *testing.T) {
	items := []NamedCount{
		{Name: "b.com", Count: 5},
		{Name: "a.com", Count: 5},
		{Name: "z.com", Count: 10},
	}
	top := topN(items, 2)

	require.Len(t, top, 2)
	require.Equal(t, "z.com", top[0].Name)
	require.Equal(t, "a.com", top[1].Name)
}
