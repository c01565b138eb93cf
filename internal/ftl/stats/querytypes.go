package stats

import (
	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
)

// queryTypeOrder is the declaration order counters.QueryTypeCount is indexed
// by, mirroring shm.QueryType's iota sequence.
var queryTypeOrder = []shm.QueryType{
	shm.QueryTypeA, shm.QueryTypeAAAA, shm.QueryTypeANY, shm.QueryTypeSRV,
	shm.QueryTypeSOA, shm.QueryTypePTR, shm.QueryTypeTXT, shm.QueryTypeNAPTR,
	shm.QueryTypeMX, shm.QueryTypeDS, shm.QueryTypeRRSIG, shm.QueryTypeDNSKEY,
	shm.QueryTypeNS, shm.QueryTypeOther,
}

// QueryTypeFractionsFromCounters derives the same shape as
// GetQueryTypeFractions directly from a shm snapshot's Counters, for the
// full enum SPEC_FULL §3 supplements beyond the socket endpoint's
// A/AAAA-only original. Fractions sum to within 1 ULP of 1.0 when total > 0
// (§4.H), and to 0 when total is 0.
func QueryTypeFractionsFromCounters(c shm.Counters) QueryTypeFractions {
	out := make(QueryTypeFractions, len(queryTypeOrder))
	if c.TotalQueries == 0 {
		for _, qt := range queryTypeOrder {
			out[qt.String()] = 0
		}
		return out
	}
	for i, qt := range queryTypeOrder {
		out[qt.String()] = float32(c.QueryTypeCount[i]) / float32(c.TotalQueries)
	}
	return out
}

// SummaryFromSnapshot derives a Summary directly from a shm snapshot,
// bypassing the control socket entirely — used when the facade (component
// D) already holds the lock for another aggregator in the same request and
// a redundant socket round-trip would be wasteful.
func SummaryFromSnapshot(snap snapshot.Snapshot) Summary {
	c := snap.Counters
	return Summary{
		DomainsBlocked:   c.Domains,
		TotalQueries:     c.TotalQueries,
		BlockedQueries:   c.Blocked,
		PercentBlocked:   PercentBlockedOf(c.Blocked, c.TotalQueries),
		UniqueDomains:    c.Domains,
		ForwardedQueries: c.Forwarded,
		CachedQueries:    c.Cached,
		TotalClients:     c.Clients,
		UniqueClients:    c.Clients,
		Status:           c.Status,
	}
}
