package stats

import (
	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
)

// OverTimeBucket is one non-empty bucket emitted by the over-time
// aggregator, grounded on original_source/src/stats/over_time_history.rs's
// fixed-width bin shape (§3 "Over-time bucket").
type OverTimeBucket struct {
	Timestamp int64 `json:"timestamp"`
	Total     int32 `json:"total"`
	Blocked   int32 `json:"blocked"`
}

// OverTime emits every non-empty bucket in ascending time order (§4.H).
func OverTime(snap snapshot.Snapshot) []OverTimeBucket {
	count := snap.OverTime.Len()
	out := make([]OverTimeBucket, 0, count)

	for i := 0; i < count; i++ {
		rec, err := snap.OverTime.Record(i)
		if err != nil {
			break
		}
		b := shm.DecodeOverTime(rec)
		if b.Total == 0 && b.Blocked == 0 {
			continue
		}
		out = append(out, OverTimeBucket{Timestamp: b.Timestamp, Total: b.Total, Blocked: b.Blocked})
	}

	return out
}

// OverTimeClientBucket is one bucket of a single client's query volume,
// supplementing the distilled spec's aggregator list per SPEC_FULL §4.H
// ("over_time_clients... bucketed breakdowns"), grounded on
// original_source/src/stats/over_time_clients.rs.
type OverTimeClientBucket struct {
	Timestamp int64 `json:"timestamp"`
	Count     int32 `json:"count"`
}

// OverTimeForClient reads the per-client-overTime segment for a single
// client index across every bucket. bucketCount is the number of buckets in
// the parallel overTime segment; the per-client segment is laid out as
// bucketCount rows of one cell per client.
func OverTimeForClient(snap snapshot.Snapshot, clientIndex, bucketCount, clientCount int) []OverTimeClientBucket {
	if clientCount == 0 {
		return nil
	}

	timestamps := make([]int64, bucketCount)
	for i := 0; i < bucketCount; i++ {
		if rec, err := snap.OverTime.Record(i); err == nil {
			timestamps[i] = shm.DecodeOverTime(rec).Timestamp
		}
	}

	out := make([]OverTimeClientBucket, 0, bucketCount)
	for bucket := 0; bucket < bucketCount; bucket++ {
		cellIndex := bucket*clientCount + clientIndex
		rec, err := snap.PerClient.Record(cellIndex)
		if err != nil {
			break
		}
		count := shm.DecodeOverTimeClient(rec)
		if count == 0 {
			continue
		}
		out = append(out, OverTimeClientBucket{Timestamp: timestamps[bucket], Count: count})
	}
	return out
}

// ForwardDestination is one upstream's share of forwarded queries, plus the
// `blocked`/`cached` pseudo-destinations described in §4.H.
type ForwardDestination struct {
	Name    string  `json:"name"`
	IP      string  `json:"ip"`
	Count   int32   `json:"count"`
	Percent float32 `json:"percent"`
}

// ForwardDestinations computes each upstream's share of forwarded queries
// plus synthetic "blocked" and "cached" destinations, grounded on
// original_source/src/stats/forward_destinations.rs.
func ForwardDestinations(snap snapshot.Snapshot) []ForwardDestination {
	total := snap.Counters.TotalQueries
	if total == 0 {
		return nil
	}

	out := make([]ForwardDestination, 0, snap.Upstreams.Len()+2)

	out = append(out, ForwardDestination{
		Name:    "blocked",
		Percent: PercentBlockedOf(snap.Counters.Blocked, total),
		Count:   snap.Counters.Blocked,
	})
	out = append(out, ForwardDestination{
		Name:    "cached",
		Percent: float32(snap.Counters.Cached) / float32(total),
		Count:   snap.Counters.Cached,
	})

	count := snap.Upstreams.Len()
	for i := 0; i < count; i++ {
		rec, err := snap.Upstreams.Record(i)
		if err != nil {
			break
		}
		u := shm.DecodeUpstream(rec)
		if !u.MagicOK() || u.QueryCount == 0 {
			continue
		}
		name := snap.Strings.Str(u.IPStrID)
		if !u.IsNameUnknown {
			if resolved := snap.Strings.Str(u.NameStrID); resolved != "" {
				name = resolved
			}
		}
		out = append(out, ForwardDestination{
			Name:    name,
			IP:      snap.Strings.Str(u.IPStrID),
			Count:   u.QueryCount,
			Percent: float32(u.QueryCount) / float32(total),
		})
	}

	return out
}
