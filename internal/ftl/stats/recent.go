package stats

import (
	"sort"

	"github.com/pihole/pihole-api/internal/ftl/history"
	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
)

// RecentBlocked returns the last n blocked queries, most recent first,
// supplementing the distilled aggregator set per SPEC_FULL §4.H with the
// `recent_blocked` endpoint original_source/src/stats/mod.rs declares
// (`mod recent_blocked;`) but whose body was not retrieved into the
// example pack; reconstructed here from FTL's own blocked-status
// classification (shm.Status.Blocked, already used by
// internal/ftl/history's FilterBlocked predicate) rather than the
// original's file contents.
func RecentBlocked(snap snapshot.Snapshot, n int) []history.Record {
	records := history.BuildRecords(snap)

	out := make([]history.Record, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		if records[i].Query.Status.Blocked() {
			out = append(out, records[i])
		}
	}
	return out
}

// UnknownQueries returns every query still carrying shm.StatusUnknown —
// forwards the resolver has not yet classified as blocked, cached or
// answered — for audit, per original_source/src/stats/mod.rs's
// `mod unknown_queries;` declaration (body not retrieved; reconstructed
// from shm.StatusUnknown the same way RecentBlocked is reconstructed from
// shm.Status.Blocked).
func UnknownQueries(snap snapshot.Snapshot) []history.Record {
	records := history.BuildRecords(snap)

	out := make([]history.Record, 0)
	for _, r := range records {
		if r.Query.Status == shm.StatusUnknown {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Query.Timestamp > out[j].Query.Timestamp
	})
	return out
}
