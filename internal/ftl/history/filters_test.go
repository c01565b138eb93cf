package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pihole/pihole-api/internal/ftl/shm"
)

// testRecords seeds 10 queries matching original_source's
// routes::stats::history::testing::test_queries fixture closely enough to
// reproduce the index sets named by the seed scenarios in §8: query_type A
// at {0,3,6,8}, the first 8 non-private, DNSSEC Secure at {0}, reply CNAME
// at {0}.
func testRecords() []Record {
	mk := func(i int, qt shm.QueryType, status shm.Status, reply shm.ReplyType, dnssec shm.DNSSECType, privacy int32) Record {
		return Record{
			Query: shm.Query{
				Timestamp:    int64(i),
				QueryType:    qt,
				Status:       status,
				ReplyType:    reply,
				DNSSECType:   dnssec,
				PrivacyLevel: privacy,
				DatabaseID:   int64(i + 1),
			},
			DomainName: "example.com",
			ClientIP:   "10.0.0.1",
		}
	}

	records := make([]Record, 10)
	for i := range records {
		qt := shm.QueryTypeAAAA
		if i == 0 || i == 3 || i == 6 || i == 8 {
			qt = shm.QueryTypeA
		}
		dnssec := shm.DNSSECUnspecified
		reply := shm.ReplyUnknown
		if i == 0 {
			dnssec = shm.DNSSECSecure
			reply = shm.ReplyCNAME
		}
		privacy := int32(0)
		if i >= 8 {
			privacy = MaxPrivacyLevel
		}
		records[i] = mk(i, qt, shm.StatusForward, reply, dnssec, privacy)
	}
	return records
}

func TestFilterQueryTypeMatchesSeedIndices(t *testing.T) {
	qt := shm.QueryTypeA
	records := testRecords()
	filtered := Filter(records, []Predicate{FilterQueryType(&qt)})

	require.Len(t, filtered, 4)
	require.Equal(t, int64(0), filtered[0].Query.Timestamp)
	require.Equal(t, int64(3), filtered[1].Query.Timestamp)
	require.Equal(t, int64(6), filtered[2].Query.Timestamp)
	require.Equal(t, int64(8), filtered[3].Query.Timestamp)
}

func TestFilterPrivateKeepsFirstEight(t *testing.T) {
	records := testRecords()
	filtered := Filter(records, []Predicate{FilterPrivate})

	require.Len(t, filtered, 8)
	for i, r := range filtered {
		require.Equal(t, int64(i), r.Query.Timestamp)
	}
}

func TestFilterDNSSECMatchesSeedIndex(t *testing.T) {
	dnssec := shm.DNSSECSecure
	records := testRecords()
	filtered := Filter(records, []Predicate{FilterDNSSEC(&dnssec)})

	require.Len(t, filtered, 1)
	require.Equal(t, int64(0), filtered[0].Query.Timestamp)
}

func TestFilterReplyMatchesSeedIndex(t *testing.T) {
	reply := shm.ReplyCNAME
	records := testRecords()
	filtered := Filter(records, []Predicate{FilterReply(&reply)})

	require.Len(t, filtered, 1)
	require.Equal(t, int64(0), filtered[0].Query.Timestamp)
}

// TestFilterCompositionIsCommutative checks the §8 invariant
// filter(F∘G, Q) == filter(F, filter(G, Q)) for an arbitrary predicate pair.
func TestFilterCompositionIsCommutative(t *testing.T) {
	records := testRecords()
	qt := shm.QueryTypeA

	composed := Filter(records, []Predicate{FilterPrivate, FilterQueryType(&qt)})
	sequential := Filter(Filter(records, []Predicate{FilterQueryType(&qt)}), []Predicate{FilterPrivate})

	require.ElementsMatch(t, composed, sequential)
}

func TestFilterBlockedClassification(t *testing.T) {
	records := []Record{
		{Query: shm.Query{Status: shm.StatusGravity}},
		{Query: shm.Query{Status: shm.StatusForward}},
	}
	blocked := true
	filtered := Filter(records, []Predicate{FilterBlocked(&blocked)})
	require.Len(t, filtered, 1)
	require.Equal(t, shm.StatusGravity, filtered[0].Query.Status)
}

func TestPrivacyFloorNeverAppears(t *testing.T) {
	records := testRecords()
	predicates := Pipeline(Params{})
	filtered := Filter(records, predicates)

	for _, r := range filtered {
		require.Less(t, r.Query.PrivacyLevel, int32(MaxPrivacyLevel))
	}
}
