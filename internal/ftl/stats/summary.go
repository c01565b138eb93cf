// Package stats implements the aggregator component (§4.H): summary,
// top-N, over-time bucketing, query-type fractions and forward
// destinations. The socket-backed aggregators are Summary and DBStats;
// Summary is grounded directly on original_source/src/stats/summary.rs —
// same read sequence, same field names. Query-type fractions are computed
// from the counters segment (querytypes.go), not over the socket.
package stats

import (
	"context"

	"github.com/pihole/pihole-api/internal/ftl/socket"
)

// Summary is the `>stats` command reply, read in the exact field order
// declared by original_source/src/stats/summary.rs.
type Summary struct {
	DomainsBlocked   int32   `json:"domains_blocked"`
	TotalQueries     int32   `json:"total_queries"`
	BlockedQueries   int32   `json:"blocked_queries"`
	PercentBlocked   float32 `json:"percent_blocked"`
	UniqueDomains    int32   `json:"unique_domains"`
	ForwardedQueries int32   `json:"forwarded_queries"`
	CachedQueries    int32   `json:"cached_queries"`
	TotalClients     int32   `json:"total_clients"`
	UniqueClients    int32   `json:"unique_clients"`
	Status           int32   `json:"status"`
}

// PercentBlockedOf computes the §8 invariant
// `percent_blocked == blocked_queries / total_queries` (0 when total is 0),
// used both to derive Summary.PercentBlocked when a caller wants it computed
// locally (e.g. from a shm snapshot's Counters rather than the socket) and
// to validate the socket-reported value in tests.
func PercentBlockedOf(blocked, total int32) float32 {
	if total == 0 {
		return 0
	}
	return float32(blocked) / float32(total)
}

// GetSummary issues `>stats` and decodes the reply per the fixed schema.
func GetSummary(ctx context.Context, conn socket.Conn) (Summary, error) {
	r, err := conn.Command(ctx, "stats")
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	domainsBlocked, err := r.ReadI32()
	if err != nil {
		return Summary{}, err
	}
	s.DomainsBlocked = domainsBlocked

	if s.TotalQueries, err = r.ReadI32(); err != nil {
		return Summary{}, err
	}
	if s.BlockedQueries, err = r.ReadI32(); err != nil {
		return Summary{}, err
	}
	if s.PercentBlocked, err = r.ReadF32(); err != nil {
		return Summary{}, err
	}
	if s.UniqueDomains, err = r.ReadI32(); err != nil {
		return Summary{}, err
	}
	if s.ForwardedQueries, err = r.ReadI32(); err != nil {
		return Summary{}, err
	}
	if s.CachedQueries, err = r.ReadI32(); err != nil {
		return Summary{}, err
	}
	if s.TotalClients, err = r.ReadI32(); err != nil {
		return Summary{}, err
	}
	if s.UniqueClients, err = r.ReadI32(); err != nil {
		return Summary{}, err
	}
	status, err := r.ReadI32()
	if err != nil {
		return Summary{}, err
	}
	s.Status = status

	if err := r.ExpectEOM(); err != nil {
		return Summary{}, err
	}

	return s, nil
}

// QueryTypeFractions is the `>querytypes` reply shape: per-type share of
// total queries. Derived from a shm snapshot's Counters rather than issued
// over the control socket — see QueryTypeFractionsFromCounters
// (querytypes.go), which avoids a redundant lock/round-trip since the
// counters segment already carries the full per-type breakdown SPEC_FULL
// §3 requires (the socket's own `>querytypes` reply only covers A/AAAA).
type QueryTypeFractions map[string]float32

// DBStats is the `>dbstats` reply (§8 seed scenario 3).
type DBStats struct {
	Queries       int32  `json:"queries"`
	FileSize      int64  `json:"filesize"`
	SQLiteVersion string `json:"sqlite_version"`
}

// GetDBStats issues `>dbstats` and decodes the reply.
func GetDBStats(ctx context.Context, conn socket.Conn) (DBStats, error) {
	r, err := conn.Command(ctx, "dbstats")
	if err != nil {
		return DBStats{}, err
	}

	var d DBStats
	if d.Queries, err = r.ReadI32(); err != nil {
		return DBStats{}, err
	}
	if d.FileSize, err = r.ReadI64(); err != nil {
		return DBStats{}, err
	}
	if d.SQLiteVersion, err = r.ReadStr(); err != nil {
		return DBStats{}, err
	}
	if err := r.ExpectEOM(); err != nil {
		return DBStats{}, err
	}
	return d, nil
}
